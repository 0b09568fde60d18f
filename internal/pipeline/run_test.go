package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alanyoungcy/soldscout/internal/domain"
	"github.com/alanyoungcy/soldscout/internal/proxy"
)

func writeInput(t *testing.T, dir string, rows ...string) string {
	t.Helper()
	path := filepath.Join(dir, "input.csv")
	content := strings.Join(append([]string{"Keyword,Identity,OMURL,SP,FMP,TSC,Period"}, rows...), "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func newTestRunner(provider domain.SessionProvider, inputPath, outputPath, mode string) *Runner {
	return &Runner{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Mode:       mode,
		Workers:    2,
		Proxies:    proxy.Disabled(),
		Unit:       newTestUnit(provider),
		Retry:      newTestController(1),
		Logger:     discardLogger(),
	}
}

func TestRunner_SequentialRun(t *testing.T) {
	dir := t.TempDir()
	src := "https://jp.mercari.com/search?keyword=camera"
	input := writeInput(t, dir,
		"film camera,cam-1,"+src+",4500,3000,30,30",
		"film camera,cam-2,"+src+",4500,3000,30,30",
	)
	output := filepath.Join(dir, "output.csv")

	provider := &stubProvider{respond: marketResponses(src)}
	runner := newTestRunner(provider, input, output, ModeSequential)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := readOutput(t, output)
	if len(rows) != 2 {
		t.Fatalf("output rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row["MSC"] != "10" || row["MSPC"] != "5" {
			t.Fatalf("row metrics wrong: %v", row)
		}
	}
}

func TestRunner_PoolRun(t *testing.T) {
	dir := t.TempDir()
	src := "https://jp.mercari.com/search?keyword=camera"
	input := writeInput(t, dir,
		"film camera,cam-1,"+src+",4500,3000,30,30",
		"film camera,cam-2,"+src+",4500,3000,30,30",
		"film camera,cam-3,"+src+",4500,3000,30,30",
	)
	output := filepath.Join(dir, "output.csv")

	provider := &stubProvider{respond: marketResponses(src)}
	runner := newTestRunner(provider, input, output, ModePool)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	rows := readOutput(t, output)
	if len(rows) != 3 {
		t.Fatalf("output rows = %d, want 3", len(rows))
	}
}

func TestRunner_ResumeSkipsCompletedRows(t *testing.T) {
	dir := t.TempDir()
	src := "https://jp.mercari.com/search?keyword=camera"
	input := writeInput(t, dir,
		"film camera,cam-1,"+src+",4500,3000,30,30",
		"film camera,cam-2,"+src+",4500,3000,30,30",
	)
	output := filepath.Join(dir, "output.csv")

	first := &stubProvider{respond: marketResponses(src)}
	if err := newTestRunner(first, input, output, ModeSequential).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.acquired() != 4 {
		t.Fatalf("first run sessions = %d, want 4", first.acquired())
	}

	// Second pass over the same dataset resumes every row.
	second := &stubProvider{respond: marketResponses(src)}
	if err := newTestRunner(second, input, output, ModeSequential).Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.acquired() != 0 {
		t.Fatalf("second run sessions = %d, resume must not navigate", second.acquired())
	}

	rows := readOutput(t, output)
	if len(rows) != 2 {
		t.Fatalf("output rows after resume = %d, want 2", len(rows))
	}
}

func TestRunner_RowCountMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	src := "https://jp.mercari.com/search?keyword=camera"
	input := writeInput(t, dir,
		"film camera,cam-1,"+src+",4500,3000,30,30",
	)
	output := filepath.Join(dir, "output.csv")

	first := &stubProvider{respond: marketResponses(src)}
	if err := newTestRunner(first, input, output, ModeSequential).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// The same identity listed twice resumes into a single output slot, so
	// both rows skip and the final account cannot balance.
	input = writeInput(t, dir,
		"film camera,cam-1,"+src+",4500,3000,30,30",
		"film camera,cam-1,"+src+",4500,3000,30,30",
	)
	second := &stubProvider{respond: marketResponses(src)}
	err := newTestRunner(second, input, output, ModeSequential).Run(context.Background())
	if err == nil {
		t.Fatalf("expected fatal error for unbalanced output")
	}
	if !errors.Is(err, domain.ErrRowCountMismatch) {
		t.Fatalf("error = %v, want ErrRowCountMismatch", err)
	}
}

func TestRunner_MissingInputIsFatal(t *testing.T) {
	dir := t.TempDir()
	provider := &stubProvider{respond: marketResponses("unused")}
	runner := newTestRunner(provider, filepath.Join(dir, "nope.csv"), filepath.Join(dir, "out.csv"), ModeSequential)

	err := runner.Run(context.Background())
	if err == nil {
		t.Fatalf("expected fatal error for missing input")
	}
	if !errors.Is(err, domain.ErrNoInput) {
		t.Fatalf("error = %v, want ErrNoInput", err)
	}
}
