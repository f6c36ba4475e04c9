package main

import (
	"bytes"
	"testing"
	"text/tabwriter"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"run", "schedule", "urls", "report", "prices", "probe"} {
		assert.Contains(t, names, want)
	}

	report, _, err := root.Find([]string{"report", "history"})
	require.NoError(t, err)
	assert.Equal(t, "history", report.Name())
}

func TestReportRequiresCountryAndBrand(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"report", "current", "--country", "NL"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brand")
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, "json", map[string]int{"n": 1}, func(tw *tabwriter.Writer) {
		t.Fatal("table must not be called for json output")
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, buf.String())
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	err := render(&buf, "text", nil, func(tw *tabwriter.Writer) {
		row(tw, "SKU", "PRICE")
		row(tw, "RV2620EU", "299.99")
	})
	require.NoError(t, err)
	assert.Equal(t, "SKU       PRICE\nRV2620EU  299.99\n", buf.String())
}

func TestFormatters(t *testing.T) {
	p := 12.5
	assert.Equal(t, "12.50", formatPrice(&p))
	assert.Equal(t, "-", formatPrice(nil))
	assert.Equal(t, "2024-03-01 09:30:00", formatTime(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
}
