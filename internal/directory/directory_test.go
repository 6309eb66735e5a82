package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-router/internal/domain"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	dir := NewDemo(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))

	acct, ok := dir.Lookup(" acct-mercury ")
	require.True(t, ok)
	assert.Equal(t, "Freddie Mercury", acct.Name)
	assert.Equal(t, "2024-03-04T12:30:00Z", acct.ETR)

	_, ok = dir.Lookup("ACCT-NOPE")
	assert.False(t, ok)
}

func TestStatus(t *testing.T) {
	dir := New([]domain.Account{
		{Number: "ACCT-ON", PowerRestored: true, ETR: "2024-03-04T11:00:00Z"},
		{Number: "ACCT-OFF"},
	})

	on := dir.Status("acct-on")
	assert.True(t, on.PowerRestored)
	require.NotNil(t, on.ETR)
	assert.Equal(t, "2024-03-04T11:00:00Z", *on.ETR)

	off := dir.Status("ACCT-OFF")
	assert.False(t, off.PowerRestored)
	assert.Nil(t, off.ETR)
	assert.Equal(t, "unavailable", off.ETROr("unavailable"))

	missing := dir.Status("ACCT-MISSING")
	assert.Equal(t, domain.OutageStatus{}, missing)
}

func TestAllIsSorted(t *testing.T) {
	all := NewDemo(time.Now()).All()
	require.Len(t, all, 5)
	assert.Equal(t, "ACCT-BOWIE", all[0].Number)
	assert.Equal(t, "ACCT-PRINCE", all[4].Number)
}
