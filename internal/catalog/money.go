package catalog

import (
	"strconv"

	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
)

// unknownBalance marks a money log that has not seen a balance yet.
const unknownBalance = -1

// logMoney compares the balance against the one seen on the previous tick.
// internalData holds that balance, or unknownBalance.
func logMoney() *rules.Definition {
	return &rules.Definition{
		Name:             "Log money changes",
		Kind:             rules.KindOther,
		Loggable:         true,
		ShortDescription: "spending and/or getting money",
		LongDescription: "This rule logs whenever money is used to buy something. It also shows how much money PLAYER_NAME " +
			"currently has in the log entry. Optionally, earning money can also be logged.",
		DefaultLimit: conditions.LimitNormal,
		Triggers: rules.TriggerTexts{
			InfoBeep: "A BCX rule has logged this financial transaction!",
			Log:      "PLAYER_NAME TYPE money: AMOUNT $ | new balance: BALANCE $",
		},
		DataDefinition: []schema.Field{
			{Name: "logEarnings", Type: schema.Toggle, Default: ir.Bool(false), Description: "Also log getting money"},
		},
		InternalDataDefault: func(*rules.State) ir.Value { return ir.Int(unknownBalance) },
		InternalDataValidate: func(v ir.Value) bool {
			_, ok := v.(ir.Int)
			return ok
		},
		StateChange: func(s *rules.State, inEffect bool) {
			if !inEffect {
				s.SetInternalData(ir.Int(unknownBalance))
			}
		},
		Tick: func(s *rules.State) bool {
			seen, ok := s.InternalData().(ir.Int)
			if !ok || !s.InEffect() {
				return false
			}
			money, ok := s.Host().Money()
			if !ok {
				return false
			}
			prev := int64(seen)
			if prev < 0 {
				prev = money
			}

			logged := false
			earnings, _ := s.CustomData().Bool("logEarnings")
			switch {
			case prev > money:
				s.Trigger(moneySubs("spent", prev-money, money))
				logged = true
			case prev < money && earnings:
				s.Trigger(moneySubs("earned", money-prev, money))
				logged = true
			}
			s.SetInternalData(ir.Int(money))
			return logged
		},
	}
}

func moneySubs(kind string, amount, balance int64) map[string]string {
	return map[string]string{
		"TYPE":    kind,
		"AMOUNT":  strconv.FormatInt(amount, 10),
		"BALANCE": strconv.FormatInt(balance, 10),
	}
}
