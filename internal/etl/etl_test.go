package etl

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"cardpipe/internal/config"
	"cardpipe/internal/logger"
	"cardpipe/internal/rejects"
)

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) config.Pipeline {
	t.Helper()
	base := t.TempDir()
	return config.Pipeline{
		Job:    "test",
		Input:  config.Input{Dir: filepath.Join(base, "raw")},
		Output: config.Output{
			CleanedDir:  filepath.Join(base, "cleaned"),
			RejectedDir: filepath.Join(base, "errors"),
		},
		Cleaning:   config.Cleaning{CardSalt: "test-salt", MaskRejectedIDs: true},
		Validation: config.Validation{StrictIDChecksum: true},
		Runtime:    config.Runtime{FileWorkers: 1},
	}
}

func readCSV(t *testing.T, path string, comma rune) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = comma
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Input.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeInput(t, cfg.Input.Dir, "Clientes-2026-01-01.csv",
		"cod cliente;nombre;apellido1;apellido2;dni;correo;telefono\n"+
			"C001;josé;garcia;lopez;12345678Z;Ana@Mail.com;612 345 678\n"+
			"C002;ana;ruiz;;bad;ana@mail;600\n")
	writeInput(t, cfg.Input.Dir, "Tarjetas-2026-01-01.csv",
		"cod cliente;numero_tarjeta;cvv;fecha_exp\n"+
			"C001;4111 1111 1111 1111;123;2025-01\n"+
			"C001;4111111111111111;123;2027-06\n"+
			"C003;12;9;2027-13\n")
	writeInput(t, cfg.Input.Dir, "notes.txt", "not a batch\n")

	runner := NewRunner(cfg, logger.Nop(), nil)
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.CustomerFiles != 1 || sum.CardFiles != 1 || sum.IgnoredFiles != 1 {
		t.Errorf("file counts = %d/%d/%d, want 1/1/1",
			sum.CustomerFiles, sum.CardFiles, sum.IgnoredFiles)
	}
	if sum.ValidCustomers != 1 || sum.RejectedCustomers != 1 {
		t.Errorf("customers = %d valid / %d rejected, want 1/1",
			sum.ValidCustomers, sum.RejectedCustomers)
	}
	if sum.ValidCards != 2 || sum.RejectedCards != 1 {
		t.Errorf("cards = %d valid / %d rejected, want 2/1",
			sum.ValidCards, sum.RejectedCards)
	}
	if sum.ConsolidatedCards != 1 {
		t.Errorf("consolidated = %d, want 1 (two C001 cards collapse)", sum.ConsolidatedCards)
	}
	if sum.LoadedCustomers != 0 || sum.LoadedCards != 0 {
		t.Errorf("load ran without a destination: %d/%d", sum.LoadedCustomers, sum.LoadedCards)
	}

	// Cleaned customer output: comma-delimited, key first, id masked.
	rows := readCSV(t, filepath.Join(cfg.Output.CleanedDir, "Clientes-2026-01-01.cleaned.csv"), ',')
	if len(rows) != 2 {
		t.Fatalf("cleaned rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "cod_cliente" {
		t.Errorf("first cleaned column = %q, want cod_cliente", rows[0][0])
	}
	byCol := map[string]string{}
	for i, col := range rows[0] {
		byCol[col] = rows[1][i]
	}
	if byCol["nombre"] != "Jose" {
		t.Errorf("nombre = %q, want accent-folded Jose", byCol["nombre"])
	}
	if byCol["dni"] != "******78Z" {
		t.Errorf("dni = %q, want masked", byCol["dni"])
	}
	if byCol["correo"] != "ana@mail.com" {
		t.Errorf("correo = %q, want lowercased", byCol["correo"])
	}
	if byCol["telefono"] != "612345678" {
		t.Errorf("telefono = %q, want digits only", byCol["telefono"])
	}

	// Cleaned card output exists and contains no raw card material.
	rows = readCSV(t, filepath.Join(cfg.Output.CleanedDir, "Tarjetas-2026-01-01.cleaned.csv"), ',')
	for _, col := range rows[0] {
		if col == "numero_tarjeta" || col == "cvv" {
			t.Errorf("raw card column %q in cleaned output", col)
		}
	}

	// Reject files carry the annotated rows.
	rows = readCSV(t, filepath.Join(cfg.Output.RejectedDir, rejects.CustomerFile), ';')
	if len(rows) != 2 {
		t.Fatalf("customer rejects = %d rows, want header + 1", len(rows))
	}
	detail := rows[1][len(rows[1])-1]
	if detail != "dni_invalido|telefono_invalido|correo_invalido" {
		t.Errorf("error_detalle = %q, want all three reasons", detail)
	}
	rows = readCSV(t, filepath.Join(cfg.Output.RejectedDir, rejects.CardFile), ';')
	if len(rows) != 2 {
		t.Fatalf("card rejects = %d rows, want header + 1", len(rows))
	}
}

func TestRunSkipsDuplicateInputs(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Input.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "cod cliente;nombre;apellido1;dni;correo;telefono\n" +
		"C001;ana;ruiz;12345678Z;ana@mail.com;612345678\n"
	writeInput(t, cfg.Input.Dir, "Clientes-2026-01-01.csv", content)
	writeInput(t, cfg.Input.Dir, "Clientes-2026-01-02.csv", content)

	runner := NewRunner(cfg, logger.Nop(), nil)
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.SkippedDuplicates != 1 {
		t.Errorf("duplicates skipped = %d, want 1", sum.SkippedDuplicates)
	}
	if sum.ValidCustomers != 1 {
		t.Errorf("valid customers = %d, want 1 (second batch skipped)", sum.ValidCustomers)
	}
}

func TestRunIsolatesBrokenFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Input.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeInput(t, cfg.Input.Dir, "Clientes-2026-01-01.csv",
		"cod cliente;nombre;apellido1;dni;correo;telefono\n"+
			"C001;ana;ruiz;12345678Z;ana@mail.com;612345678\n")
	// An unterminated quote makes the header unparseable for this batch.
	writeInput(t, cfg.Input.Dir, "Clientes-2026-01-02.csv", "\"broken\n")

	runner := NewRunner(cfg, logger.Nop(), nil)
	sum, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.FailedFiles != 1 {
		t.Errorf("failed files = %d, want 1", sum.FailedFiles)
	}
	if sum.ValidCustomers != 1 {
		t.Errorf("valid customers = %d, want the healthy batch processed", sum.ValidCustomers)
	}
}

func TestCleanedName(t *testing.T) {
	if got := cleanedName("Clientes-2026-01-15.csv"); got != "Clientes-2026-01-15.cleaned.csv" {
		t.Fatalf("cleanedName = %q", got)
	}
}
