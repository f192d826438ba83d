package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArchiveSaveAndRecent(t *testing.T) {
	a, err := NewArchive(filepath.Join(t.TempDir(), "honeypot.db"))
	require.NoError(t, err)
	defer a.Close()

	first := sampleReport()
	require.NoError(t, a.Save(first))

	second := sampleReport()
	second.SessionID = "s2"
	second.ScamDetected = false
	second.ScamIndicators = nil
	require.NoError(t, a.Save(second))

	rows, err := a.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Most recent first.
	require.Equal(t, "s2", rows[0].Report.SessionID)
	require.False(t, rows[0].Report.ScamDetected)
	require.Equal(t, "s1", rows[1].Report.SessionID)
	require.Equal(t, []string{"Phishing Link", "Threat / Urgency"}, rows[1].Report.ScamIndicators)
	require.Equal(t, []string{"OTP"}, rows[1].Report.RequestedSensitiveData)
	require.Equal(t, 4, rows[1].Report.TotalTurns)
	require.NotEmpty(t, rows[0].ID)
	require.False(t, rows[0].CreatedAt.IsZero())
}

func TestArchiveRecentLimit(t *testing.T) {
	a, err := NewArchive(filepath.Join(t.TempDir(), "honeypot.db"))
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Save(sampleReport()))
	}

	rows, err := a.Recent(3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestArchiveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "honeypot.db")

	a, err := NewArchive(path)
	require.NoError(t, err)
	require.NoError(t, a.Save(sampleReport()))
	require.NoError(t, a.Close())

	reopened, err := NewArchive(path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
