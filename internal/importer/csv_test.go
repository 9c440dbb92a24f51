package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := `code,campaign,used,used_at,expires_at,notes
SPRING-1,spring-fair,true,2024-03-04 15:30:00,,printed
SPRING-2,,false,,2024-06-01,
SPRING-3,career-day,TRUE,2024-03-05T09:00:00+02:00,2024-06-01T00:00:00Z,
,spring-fair,true,,,
`

	recs, err := ParseCSV(strings.NewReader(data), "default")
	require.NoError(t, err)
	require.Len(t, recs, 3)

	require.Equal(t, "SPRING-1", recs[0].Code)
	require.Equal(t, "spring-fair", recs[0].Campaign)
	require.True(t, recs[0].Used)
	require.Equal(t, time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC), *recs[0].UsedAt)
	require.Nil(t, recs[0].ExpiresAt)

	require.Equal(t, "default", recs[1].Campaign)
	require.False(t, recs[1].Used)
	require.Nil(t, recs[1].UsedAt)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *recs[1].ExpiresAt)

	require.True(t, recs[2].Used)
	require.True(t, time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC).Equal(*recs[2].UsedAt))
}

func TestParseCSV_MinimalColumns(t *testing.T) {
	recs, err := ParseCSV(strings.NewReader("Code\nX1\nX2\n"), "c")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "c", recs[1].Campaign)
	require.False(t, recs[1].Used)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"no code column": "campaign,used\nx,true\n",
		"bad used":       "code,used\nA,maybe\n",
		"bad used_at":    "code,used,used_at\nA,true,yesterday\n",
		"bad expires_at": "code,expires_at\nA,03/04/2024\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(data), "")
			require.Error(t, err)
		})
	}
}
