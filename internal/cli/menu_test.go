package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenu_Session(t *testing.T) {
	h := newHarness(t)
	file := writeFile(t, t.TempDir(), "prefixes.csv", "49015420,ModelA\n")
	h.env.Stdin = strings.NewReader(strings.Join([]string{
		"2", "ModelA", // nothing imported yet
		"1", file,
		"2", "ModelA",
		"3", "490010108561989",
		"4", "35693803", "Apple iPhone",
		"4", "35693803", "Again",
		"9",
		"5",
	}, "\n") + "\n")

	require.NoError(t, h.run(t, "menu"))
	out := h.stdout.String()
	assert.Contains(t, out, "No prefix found for that model.")
	assert.Contains(t, out, "prefixes.csv: 1 lines, 1 inserted")
	assert.Contains(t, out, "Generated IMEI: 49015420")
	assert.Contains(t, out, "check digit should be 2, got 9")
	assert.Contains(t, out, "Added 35693803 Apple iPhone")
	assert.Contains(t, out, "Prefix 35693803 already exists.")
	assert.Contains(t, out, "Invalid choice")

	recs, err := h.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestMenu_EOFQuits(t *testing.T) {
	h := newHarness(t)
	h.env.Stdin = strings.NewReader("3\n356938035643809\n")
	require.NoError(t, h.run(t, "menu"))
	assert.Contains(t, h.stdout.String(), "356938035643809: valid")
}

func TestMenu_ImportMissingFile(t *testing.T) {
	h := newHarness(t)
	h.env.Stdin = strings.NewReader("1\n" + filepath.Join(t.TempDir(), "*.csv") + "\nq\n")
	require.NoError(t, h.run(t, "menu"))
	assert.Contains(t, h.stdout.String(), "Cannot open")
}

func TestMenu_NoInput(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.run(t, "menu"))
}
