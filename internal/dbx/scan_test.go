package dbx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanners_AgainstSQLite(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`CREATE TABLE s (txt TEXT, flag INTEGER, ts TEXT, nts TEXT)`)
	require.NoError(t, err)

	ts := time.Date(2024, 6, 1, 8, 15, 0, 250_000_000, time.UTC)
	_, err = db.Exec(`INSERT INTO s VALUES (?, ?, ?, ?), (NULL, NULL, NULL, NULL)`,
		"hello", Bool(true), TimeValue(ts), NullTimeValue(&ts))
	require.NoError(t, err)

	rows, err := db.Query(`SELECT txt, flag, ts, nts FROM s ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		txt  string
		flag bool
		ts   time.Time
		nts  *time.Time
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(Text(&r.txt), Flag(&r.flag), Time(&r.ts), NullTime(&r.nts)))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 2)

	assert.Equal(t, "hello", got[0].txt)
	assert.True(t, got[0].flag)
	assert.True(t, ts.Equal(got[0].ts))
	require.NotNil(t, got[0].nts)
	assert.True(t, ts.Equal(*got[0].nts))

	assert.Equal(t, "", got[1].txt)
	assert.False(t, got[1].flag)
	assert.True(t, got[1].ts.IsZero())
	assert.Nil(t, got[1].nts)
}

func TestNullValues(t *testing.T) {
	assert.Nil(t, NullText(""))
	assert.Equal(t, "x", NullText("x"))
	assert.Nil(t, NullTimeValue(nil))
}

func TestTimeScanner_RejectsGarbage(t *testing.T) {
	var ts time.Time
	require.Error(t, Time(&ts).Scan("not a time"))
	require.Error(t, Time(&ts).Scan(42.5))
	var b bool
	require.Error(t, Flag(&b).Scan("yes"))
}
