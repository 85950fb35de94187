package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"commissioning-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func xlsxBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "header"))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func shell(t *testing.T, script string, timeout time.Duration) *Converter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convert.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	c, err := NewConverter([]string{"/bin/sh", path}, timeout, 2, nil)
	require.NoError(t, err)
	return c
}

func TestValidateAcceptsWorkbook(t *testing.T) {
	data := xlsxBytes(t)
	assert.NoError(t, Validate("plan.xlsx", "", data))
	assert.NoError(t, Validate("PLAN.XLSX", mimeXLSX, data))
	assert.NoError(t, Validate("plan.xlsx", "application/octet-stream", data))
}

func TestValidateRejections(t *testing.T) {
	data := xlsxBytes(t)
	cases := map[string]struct {
		name, declared string
		data           []byte
	}{
		"wrong extension":   {"plan.csv", "", data},
		"no extension":      {"plan", "", data},
		"json content":      {"plan.xlsx", "", []byte(`{"devices":[]}`)},
		"plain text":        {"plan.xls", "", []byte("hello")},
		"empty":             {"plan.xlsx", "", nil},
		"declared as image": {"plan.xlsx", "image/png", data},
		"bad declared type": {"plan.xlsx", ";;", data},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(tc.name, tc.declared, tc.data)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidFileType), "got %v", err)
		})
	}
}

func TestConvertPassesStdinThrough(t *testing.T) {
	c := shell(t, "cat", time.Second*5)
	out, err := c.Convert(context.Background(), []byte(`  {"devices":[]}  `))
	require.NoError(t, err)
	assert.JSONEq(t, `{"devices":[]}`, string(out))
}

func TestConvertNonZeroExit(t *testing.T) {
	c := shell(t, "echo 'sheet missing' >&2\nexit 2", time.Second*5)
	_, err := c.Convert(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConversionFailed))
	assert.Contains(t, apperr.Message(err), "sheet missing")
	assert.Contains(t, apperr.Message(err), "status 2")
}

func TestConvertMalformedOutput(t *testing.T) {
	for name, script := range map[string]string{
		"garbage": "echo 'not json'",
		"empty":   "cat >/dev/null",
	} {
		t.Run(name, func(t *testing.T) {
			c := shell(t, script, time.Second*5)
			_, err := c.Convert(context.Background(), []byte("x"))
			assert.True(t, apperr.IsKind(err, apperr.KindMalformedConverterOutput), "got %v", err)
		})
	}
}

func TestConvertTimeout(t *testing.T) {
	c := shell(t, "exec sleep 10", 200*time.Millisecond)

	start := time.Now()
	_, err := c.Convert(context.Background(), nil)
	assert.True(t, apperr.IsKind(err, apperr.KindConversionTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConvertMissingProgram(t *testing.T) {
	c, err := NewConverter([]string{filepath.Join(t.TempDir(), "missing")}, time.Second, 1, nil)
	require.NoError(t, err)
	_, err = c.Convert(context.Background(), nil)
	assert.True(t, apperr.IsKind(err, apperr.KindConversionFailed))
}

func TestNewConverterRequiresCommand(t *testing.T) {
	_, err := NewConverter(nil, time.Second, 1, nil)
	assert.Error(t, err)
}
