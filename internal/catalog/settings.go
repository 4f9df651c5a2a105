package catalog

import (
	"github.com/roach88/warden/internal/conditions"
	"github.com/roach88/warden/internal/rules"
	"github.com/roach88/warden/internal/schema"
)

var toggleSettings = []struct {
	id      string
	setting rules.ToggleSetting
}{
	{"setting_forbid_lockpicking", rules.ToggleSetting{
		Setting:      "Locks on you can't be picked",
		Key:          "OnlineSharedSettings.DisablePickingLocksOnSelf",
		DefaultValue: true,
		DefaultLimit: conditions.LimitLimited,
	}},
	{"setting_forbid_SP_rooms", rules.ToggleSetting{
		Setting:      "Cannot enter single-player rooms when restrained",
		Key:          "GameplaySettings.OfflineLockedRestrained",
		DefaultValue: true,
		DefaultLimit: conditions.LimitLimited,
	}},
	{"setting_forbid_safeword", rules.ToggleSetting{
		Setting:      "Allow safeword use",
		Key:          "GameplaySettings.EnableSafeword",
		DefaultValue: false,
		DefaultLimit: conditions.LimitLimited,
	}},
	{"setting_show_afk", rules.ToggleSetting{
		Setting:      "Show AFK bubble",
		Key:          "OnlineSettings.EnableAfkTimer",
		DefaultValue: true,
		DefaultLimit: conditions.LimitBlocked,
	}},
	{"setting_relog_keeps_restraints", rules.ToggleSetting{
		Setting:      "Keep all restraints when relogging",
		Key:          "GameplaySettings.DisableAutoRemoveLogin",
		DefaultValue: true,
		DefaultLimit: conditions.LimitLimited,
	}},
	{"setting_leashed_roomchange", rules.ToggleSetting{
		Setting:      "Players can drag you to rooms when leashed",
		Key:          "OnlineSharedSettings.AllowPlayerLeashing",
		DefaultValue: true,
		DefaultLimit: conditions.LimitBlocked,
	}},
	{"setting_plug_vibe_events", rules.ToggleSetting{
		Setting:      "Events while plugged or vibed",
		Key:          "ImmersionSettings.StimulationEvents",
		DefaultValue: true,
		DefaultLimit: conditions.LimitNormal,
	}},
}

var itemPermission = rules.SelectSetting{
	Setting:      "Item permission",
	Key:          "ItemPermission",
	DefaultLimit: conditions.LimitLimited,
	Options: []schema.Option{
		{Value: "everyone", Label: "Everyone, no exceptions"},
		{Value: "everyoneBlacklist", Label: "Everyone, except blacklist"},
		{Value: "dominants", Label: "Owner, Lovers, whitelist & Dominants"},
		{Value: "whitelist", Label: "Owner, Lovers and whitelist only"},
	},
	Default: "everyone",
	Values: map[string]int64{
		"everyone":          0,
		"everyoneBlacklist": 1,
		"dominants":         2,
		"whitelist":         3,
	},
}
