package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/testutil"
)

func TestLogMoney_SpendingTriggersOnce(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_log_money")
	assert.Equal(t, ir.Int(-1), st.InternalData())

	f.sweep(t)
	assert.Equal(t, ir.Int(-1), st.InternalData(), "balance not loaded yet")

	f.host.SetMoney(100)
	f.sweep(t)
	assert.Equal(t, ir.Int(100), st.InternalData())
	assert.Empty(t, f.triggers)

	f.host.SetMoney(60)
	f.sweep(t)
	require.Len(t, f.triggers, 1)
	assert.Equal(t, rules.TriggerEvent{
		RuleID:  "other_log_money",
		Kind:    rules.TriggerKindTrigger,
		Message: "Alice spent money: 40 $ | new balance: 60 $",
		At:      testutil.Epoch,
	}, f.triggers[0])
	assert.Equal(t, []testutil.Message{
		{Kind: "infobeep", Text: "A BCX rule has logged this financial transaction!"},
	}, f.host.TakeMessages())
	assert.Equal(t, ir.Int(60), st.InternalData())

	f.sweep(t)
	assert.Len(t, f.triggers, 1)
}

func TestLogMoney_Earnings(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_log_money")
	f.host.SetMoney(100)
	f.sweep(t)

	f.host.SetMoney(150)
	f.sweep(t)
	assert.Empty(t, f.triggers, "earnings are not logged by default")
	assert.Equal(t, ir.Int(150), st.InternalData())

	require.NoError(t, f.runtime.Configure("other_log_money", rules.Update{
		CustomData: ir.Object{"logEarnings": ir.Bool(true)},
	}))
	f.host.SetMoney(175)
	f.sweep(t)
	require.Len(t, f.triggers, 1)
	assert.Equal(t, "Alice earned money: 25 $ | new balance: 175 $", f.triggers[0].Message)
}

func TestLogMoney_ForgetsBalanceOutOfEffect(t *testing.T) {
	f := newFixture(t, "", nil)
	st := f.add(t, "other_log_money")
	f.host.SetMoney(100)
	f.sweep(t)

	require.NoError(t, f.runtime.SetActive("other_log_money", false))
	assert.Equal(t, ir.Int(-1), st.InternalData())

	f.host.SetMoney(20)
	require.NoError(t, f.runtime.SetActive("other_log_money", true))
	f.sweep(t)
	assert.Empty(t, f.triggers, "spending while out of effect is not logged")
	assert.Equal(t, ir.Int(20), st.InternalData())
}
