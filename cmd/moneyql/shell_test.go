package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/moneyql/internal/config"
)

func TestReadStatementsBuffersUntilSemicolon(t *testing.T) {
	in := strings.NewReader(`SELECT *
  WHERE amount < 0;

LABEL 1 grocery;
quit
SELECT 2;
`)
	var got []string
	var out bytes.Buffer
	require.NoError(t, readStatements(in, &out, false, func(src string) { got = append(got, src) }))
	require.Equal(t, []string{"SELECT *\n  WHERE amount < 0;\n", "LABEL 1 grocery;\n"}, got)
	require.Empty(t, out.String())
}

func TestReadStatementsFlushesTrailingInput(t *testing.T) {
	var got []string
	var out bytes.Buffer
	require.NoError(t, readStatements(strings.NewReader("SELECT *"), &out, true, func(src string) { got = append(got, src) }))
	require.Equal(t, []string{"SELECT *\n"}, got)
	require.Equal(t, "moneyql>      ...> ", out.String())
}

func TestExecSource(t *testing.T) {
	src, err := execSource(strings.NewReader("ignored"), []string{"SELECT", "*;"})
	require.NoError(t, err)
	require.Equal(t, "SELECT *;", src)

	src, err = execSource(strings.NewReader("DELETE 1;"), nil)
	require.NoError(t, err)
	require.Equal(t, "DELETE 1;", src)
}

func TestInitConfigRefusesToOverwrite(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MONEYQL_CONFIG", "")
	path := filepath.Join(home, ".config", "moneyql", "config.toml")

	c, err := config.Load()
	require.NoError(t, err)
	c.Database.Path = "/data/money.db"

	var out bytes.Buffer
	require.NoError(t, initConfig(&out, c, false))
	require.Equal(t, "wrote "+path+"\n", out.String())

	require.ErrorContains(t, initConfig(&out, c, false), "already exists")
	require.NoError(t, initConfig(&out, c, true))

	again, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "/data/money.db", again.Database.Path)
}
