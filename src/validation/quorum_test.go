package validation

import (
	"testing"

	"github.com/peerbadge/badges/src/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuorumReport(t *testing.T) {
	class := &entry.BadgeClass{Name: "go", CreatorAgent: alice, ValidatorsRequired: 3}
	classAddr := addressOf(t, class)
	a := &entry.BadgeAssertion{BadgeClass: classAddr, Recipient: frank}

	report, err := QuorumReport(a, chainOf(frank, class, claim(bob, frank, classAddr)))
	require.NoError(t, err)
	assert.Equal(t, class, report.Class)
	assert.Equal(t, 3, report.Required)
	assert.Equal(t, 1, report.Observed)
	assert.Equal(t, 2, report.Missing())
	assert.False(t, report.Satisfied())

	report, err = QuorumReport(a, chainOf(frank, class, claim(alice, bob, classAddr)))
	require.NoError(t, err)
	assert.True(t, report.CreatorBypass)
	assert.Equal(t, 0, report.Missing())

	own := &entry.BadgeAssertion{BadgeClass: classAddr, Recipient: alice}
	report, err = QuorumReport(own, chainOf(alice, class))
	require.NoError(t, err)
	assert.True(t, report.CreatorAssertion)
	assert.True(t, report.Satisfied())

	_, err = QuorumReport(a, chainOf(frank))
	requireErrType(t, err, BadgeClassNotInChain)
}
