package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/askmongo/askmongo/internal/export"
	"github.com/askmongo/askmongo/internal/util"
)

// WriteOutputs writes one result CSV per successful question into dir, plus a
// summary.csv recording status, row count and (redacted) error per question.
func WriteOutputs(dir string, outputs []Output) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for _, o := range outputs {
		if o.Err != nil {
			continue
		}
		path := filepath.Join(dir, o.Question.Name+".csv")
		if err := writeDocsFile(path, o.Docs); err != nil {
			return err
		}
	}

	return writeSummary(filepath.Join(dir, "summary.csv"), outputs)
}

func writeDocsFile(path string, docs []map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteDocumentsCSV(f, docs); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeSummary(path string, outputs []Output) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"name", "question", "status", "rows", "error"}); err != nil {
		_ = f.Close()
		return err
	}
	for _, o := range outputs {
		status := "ok"
		errMsg := ""
		if o.Err != nil {
			status = "error"
			errMsg = util.RedactSecrets(o.Err.Error())
		}
		rec := []string{
			o.Question.Name,
			o.Question.Question,
			status,
			strconv.Itoa(len(o.Docs)),
			errMsg,
		}
		if err := cw.Write(rec); err != nil {
			_ = f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
