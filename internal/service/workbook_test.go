package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

var testSystems = []string{"AD PRIN", "VPN", "Gmail"}

var standardHeader = []interface{}{"RESP.", "NOME", "MOTIVO", "SAÍDA", "RETORNO", "GESTOR", "AD PRIN", "VPN", "GMAIL"}

type fixtureTab struct {
	name string
	rows [][]interface{}
}

// buildWorkbook renders tabs, in order, to xlsx bytes.
func buildWorkbook(t *testing.T, tabs ...fixtureTab) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, tab := range tabs {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", tab.name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(tab.name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}

		for r, row := range tab.rows {
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			values := row
			if err := f.SetSheetRow(tab.name, axis, &values); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func writeWorkbook(t *testing.T, tabs ...fixtureTab) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := os.WriteFile(path, buildWorkbook(t, tabs...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// twoTabFixture has three usable December rows plus one without a return
// date, and two usable January rows.
func twoTabFixture(decemberManager string) []fixtureTab {
	return []fixtureTab{
		{
			name: "DEZEMBRO 2025",
			rows: [][]interface{}{
				standardHeader,
				{"RH", "Ana Souza", "Férias", "20/12/2025", "05/01/2026", decemberManager, "BLOQUEADO", "BLOQUEADO", ""},
				{"TI", "Bruno Lima", "Férias", "15/12/2025", "30/12/2025", "Carlos", "LIBERADO", "N/A", "LIBERADO"},
				{"FIN", "Carla Dias", "Licença", "10/12/2025", "24/12/2025", "nan", "BLOQ", "-", "XYZ"},
				{"FIN", "Diego Reis", "Férias", "01/12/2025", "", "Carlos", "BLOQUEADO"},
			},
		},
		{
			name: "JANEIRO 2026",
			rows: [][]interface{}{
				standardHeader,
				{"RH", "Elisa Prado", "Férias", "12/01/2026", "26/01/2026", "Marta", "BLOQUEADO", "BLOQUEADO", "BLOQUEADO"},
				{"TI", "Fabio Nunes", "Férias", "19/01/2026", "02/02/2026", "Marta"},
			},
		},
	}
}
