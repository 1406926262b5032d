package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"custos/internal/shared/testutil"
	"custos/pkg/contracts/domain"
)

// execute runs the root command and captures both streams
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeWorkbook(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendas.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func salesFile(t *testing.T) string {
	return writeWorkbook(t, testutil.SalesWorkbook(t))
}

// noSalesSheet has the product columns but nothing to aggregate
func noSalesSheet() testutil.SheetFixture {
	return testutil.SheetFixture{Name: "Abr", Rows: [][]any{
		{"PRODUTOS", "MARGEM", "MARGEM PONDERADA"},
		{"Arroz", 40, 25},
	}}
}

func TestSheets(t *testing.T) {
	path := salesFile(t)

	stdout, _, err := execute(t, "sheets", path)
	require.NoError(t, err)
	assert.Equal(t, "Jan\nFeb\nMar\n", stdout)

	stdout, _, err = execute(t, "sheets", "--format", "json", path)
	require.NoError(t, err)
	var out struct {
		FileName string   `json:"file_name"`
		Sheets   []string `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, "vendas.xlsx", out.FileName)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, out.Sheets)
}

func TestSummary_AllSheetsByDefault(t *testing.T) {
	stdout, _, err := execute(t, "summary", salesFile(t))
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dados para o mês: Jan")
	assert.Contains(t, stdout, "Total de Vendas: R$ 300.00")
	assert.Contains(t, stdout, "Custo Total da Mercadoria Vendida: R$ 110.00")
	assert.Contains(t, stdout, "Margem Ponderada Total: 70.00%")
	assert.Contains(t, stdout, "Dados para o mês: Feb")
	assert.Contains(t, stdout, "Dados para o mês: Mar")
	assert.Less(t, strings.Index(stdout, "mês: Feb"), strings.Index(stdout, "mês: Mar"))
}

func TestSummary_MonthErrorIsNotFatal(t *testing.T) {
	path := writeWorkbook(t, testutil.BuildWorkbook(t, testutil.JanSheet(), noSalesSheet()))

	stdout, _, err := execute(t, "summary", "--months", "Abr", "--months", "Jan", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, `Erro: sheet "Abr" is missing column "VENDA"`)
	assert.Contains(t, stdout, "Total de Vendas: R$ 300.00")
	assert.Less(t, strings.Index(stdout, "Abr"), strings.Index(stdout, "Jan"))
}

func TestSummary_SheetNameWithComma(t *testing.T) {
	jan := testutil.JanSheet()
	jan.Name = "Janeiro, 2024"
	path := writeWorkbook(t, testutil.BuildWorkbook(t, jan, testutil.FebSheet()))

	stdout, _, err := execute(t, "summary", "-m", "Janeiro, 2024", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Dados para o mês: Janeiro, 2024")
	assert.Contains(t, stdout, "Total de Vendas: R$ 300.00")
	assert.NotContains(t, stdout, "mês: Feb")
}

func TestDebugLogsShareTraceID(t *testing.T) {
	_, stderr, err := execute(t, "summary", "--log-level", "debug", "-m", "Jan", "-m", "Feb", salesFile(t))
	require.NoError(t, err)

	traceIDs := map[string]bool{}
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) != nil {
			continue
		}
		if id, ok := entry["trace_id"].(string); ok {
			traceIDs[id] = true
		}
	}
	assert.Len(t, traceIDs, 1, stderr)
}

func TestSummary_Rows(t *testing.T) {
	stdout, _, err := execute(t, "summary", "-m", "Feb", "--rows", salesFile(t))
	require.NoError(t, err)

	assert.Contains(t, stdout, "PRODUTOS")
	assert.Contains(t, stdout, "Arroz")
	assert.Contains(t, stdout, "53.5")
}

func TestSummary_EmptySelection(t *testing.T) {
	stdout, _, err := execute(t, "summary", "--months=", salesFile(t))
	require.NoError(t, err)
	assert.Equal(t, "Nenhum mês selecionado.\n", stdout)
}

func TestSummary_CSV(t *testing.T) {
	stdout, _, err := execute(t, "summary", "-f", "csv", "-m", "Jan", salesFile(t))
	require.NoError(t, err)

	assert.Contains(t, stdout, "MES,VENDA,CUSTO MERCADORIA,MARGEM PONDERADA,ERRO")
	assert.Contains(t, stdout, "Jan,300.00,110.00,70.00,")
}

func TestSeries(t *testing.T) {
	path := salesFile(t)

	stdout, _, err := execute(t, "series", "-f", "json", "-m", "Feb", "-m", "Jan", path)
	require.NoError(t, err)
	var series domain.ComparativeSeries
	require.NoError(t, json.Unmarshal([]byte(stdout), &series))
	assert.Equal(t, []string{"Feb", "Jan"}, series.Months)
	assert.Equal(t, []float64{150, 300}, series.Sales)
	assert.Equal(t, []float64{70, 110}, series.Costs)
	assert.Equal(t, []float64{35, 70}, series.WeightedMargins)

	stdout, _, err = execute(t, "series", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "MES")
	assert.Contains(t, stdout, "R$ 300.00")
	assert.Contains(t, stdout, "35.00%")

	stdout, _, err = execute(t, "series", "--format", "csv", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Jan,300.00,110.00,70.00")
}

func TestSeries_Failures(t *testing.T) {
	path := writeWorkbook(t, testutil.BuildWorkbook(t, testutil.JanSheet(), noSalesSheet()))

	tests := []struct {
		name   string
		args   []string
		expect string
	}{
		{name: "missing column", args: []string{"series", "-m", "Jan", "-m", "Abr", path}, expect: `missing column "VENDA"`},
		{name: "unknown month", args: []string{"series", "-m", "Dez", path}, expect: `unknown sheet "Dez"`},
		{name: "missing file", args: []string{"series", filepath.Join(t.TempDir(), "nada.xlsx")}, expect: "nada.xlsx"},
		{name: "invalid format", args: []string{"series", "-f", "yaml", path}, expect: "invalid format: yaml"},
		{name: "no file argument", args: []string{"series"}, expect: "accepts 1 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expect)
			assert.Contains(t, stderr, "Error:")
			assert.Empty(t, stdout)
		})
	}
}

func TestMargins(t *testing.T) {
	path := salesFile(t)

	stdout, stderr, err := execute(t, "margins", "-m", "Jan", "-m", "Mar", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Arroz")
	assert.Contains(t, stdout, "Feijao")
	assert.Contains(t, stderr, "planilha 'Mar'")
	assert.Contains(t, stderr, "VENDA, CUSTO MERCADORIA, MARGEM PONDERADA")

	stdout, _, err = execute(t, "margins", "-f", "csv", "-m", "Feb", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "PRODUTOS,MES,TIPO MARGEM,VALOR")
	assert.Contains(t, stdout, "Arroz,Feb,MARGEM,53.50")
	assert.Contains(t, stdout, "Arroz,Feb,MARGEM PONDERADA,35.00")

	stdout, _, err = execute(t, "margins", "-m", "Mar", path)
	require.NoError(t, err)
	assert.Equal(t, "Nenhum dado para exibir nos gráficos.\n", stdout)
}

func TestChart(t *testing.T) {
	path := salesFile(t)
	out := filepath.Join(t.TempDir(), "charts.html")

	_, stderr, err := execute(t, "chart", "--theme", "westeros", "-o", out, path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+out)

	html, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(html), "westeros")
	assert.Contains(t, string(html), "Vendas vs Custos - Linha")

	_, _, err = execute(t, "chart", "--theme", "neon", "-o", out, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --theme")
}

func TestChart_SeriesFailureKeepsMargins(t *testing.T) {
	path := writeWorkbook(t, testutil.BuildWorkbook(t, testutil.JanSheet(), noSalesSheet()))

	stdout, stderr, err := execute(t, "chart", "-o", "-", "-m", "Jan", "-m", "Abr", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Gráficos comparativos indisponíveis")
	assert.NotContains(t, stdout, "Vendas vs Custos - Linha")
	assert.Contains(t, stdout, "Arroz")
}

func TestExport(t *testing.T) {
	out := filepath.Join(t.TempDir(), "resumo.xlsx")

	_, _, err := execute(t, "export", "-o", out, salesFile(t))
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Resumo")
}

func TestExport_FailureRemovesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "resumo.xlsx")

	_, _, err := execute(t, "export", "-o", out, "-m", "Dez", salesFile(t))
	require.Error(t, err)
	assert.NoFileExists(t, out)
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Custos v")
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vendas.xlsx"), testutil.SalesWorkbook(t), 0o644))

	stdout, _, err := execute(t, "find", "-f", "csv", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ARQUIVO,BYTES,MODIFICADO")
	assert.Contains(t, stdout, filepath.Join(dir, "vendas.xlsx"))
	assert.NotContains(t, stdout, "notas.txt")
}

func TestDirectoryArgumentUsesNewestWorkbook(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "antigo.xlsx")
	require.NoError(t, os.WriteFile(older, testutil.BuildWorkbook(t, noSalesSheet()), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "novo.xlsx"), testutil.SalesWorkbook(t), 0o644))

	stdout, _, err := execute(t, "sheets", dir)
	require.NoError(t, err)
	assert.Equal(t, "Jan\nFeb\nMar\n", stdout)
}
