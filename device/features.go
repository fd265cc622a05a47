package device

// State option labels shared by all families.
const (
	StateOff     = "off"
	StateOn      = "on"
	StateNone    = "-"
	StateUnknown = "unknown"
)

// Raw bit labels as they appear in descriptors.
const (
	BitOff      = "OFF"
	BitOn       = "ON"
	LabelBitOff = "@CP_OFF_EN_W"
	LabelBitOn  = "@CP_ON_EN_W"
)

// localLangPack translates well-known raw labels without consulting the
// downloaded language packs.
var localLangPack = map[string]string{
	BitOff:            StateOff,
	BitOn:             StateOn,
	LabelBitOff:       StateOff,
	LabelBitOn:        StateOn,
	"CLOSE":           StateOff,
	"OPEN":            StateOn,
	"UNLOCK":          StateOff,
	"LOCK":            StateOn,
	"INITIAL_BIT_OFF": StateOff,
	"INITIAL_BIT_ON":  StateOn,
	"IGNORE":          StateNone,
	"NONE":            StateNone,
	"NOT_USE":         "Not Used",
}

// Feature keys for climate devices.
const (
	FeatEnergyCurrent   = "energy_current"
	FeatHotWaterTemp    = "hot_water_temperature"
	FeatHumidity        = "humidity"
	FeatLightingDisplay = "lighting_display"
	FeatModeAirClean    = "mode_airclean"
	FeatModeAWHPSilent  = "mode_awhp_silent"
	FeatModeJet         = "mode_jet"
	FeatRoomTemp        = "room_temperature"
	FeatWaterInTemp     = "water_in_temperature"
	FeatWaterOutTemp    = "water_out_temperature"
)

// Feature keys for laundry devices.
const (
	FeatDryLevel      = "dry_level"
	FeatErrorMsg      = "error_message"
	FeatPreState      = "pre_state"
	FeatProcessState  = "process_state"
	FeatRinseMode     = "rinse_mode"
	FeatRunState      = "run_state"
	FeatSpinSpeed     = "spin_speed"
	FeatTempControl   = "temp_control"
	FeatTimeDry       = "time_dry"
	FeatTubCleanCount = "tubclean_count"
	FeatWaterTemp     = "water_temp"

	FeatAutoDoor      = "auto_door"
	FeatChildLock     = "child_lock"
	FeatCreaseCare    = "crease_care"
	FeatDelayStart    = "delay_start"
	FeatDetergent     = "detergent"
	FeatDetergentLow  = "detergent_low"
	FeatDoorClose     = "door_close"
	FeatDoorLock      = "door_lock"
	FeatDoorOpen      = "door_open"
	FeatDualZone      = "dual_zone"
	FeatEnergySaver   = "energy_saver"
	FeatExtraDry      = "extra_dry"
	FeatHalfLoad      = "half_load"
	FeatHighTemp      = "high_temp"
	FeatMedicRinse    = "medic_rinse"
	FeatNightDry      = "night_dry"
	FeatPreWash       = "pre_wash"
	FeatRemoteStart   = "remote_start"
	FeatRinseRefill   = "rinse_refill"
	FeatSaltRefill    = "salt_refill"
	FeatSoftener      = "softener"
	FeatSoftenerLow   = "softener_low"
	FeatStandby       = "standby"
	FeatSteam         = "steam"
	FeatSteamSoftener = "steam_softener"
	FeatTurboWash     = "turbo_wash"

	FeatAntiCrease  = "anti_crease"
	FeatDampDryBeep = "damp_dry_beep"
	FeatEcoHybrid   = "eco_hybrid"
	FeatHandIron    = "hand_iron"
	FeatReservation = "reservation"
	FeatSelfClean   = "self_clean"
)

// Feature keys for refrigerators.
const (
	FeatEcoFriendly          = "eco_friendly"
	FeatExpressMode          = "express_mode"
	FeatExpressFridge        = "express_fridge"
	FeatFreshAirFilter       = "fresh_air_filter"
	FeatIcePlus              = "ice_plus"
	FeatSmartSavingMode      = "smart_saving_mode"
	FeatWaterFilterUsedMonth = "water_filter_used_month"
)

// Feature keys for ranges and ovens.
const (
	FeatCooktopLeftFrontState  = "cooktop_left_front_state"
	FeatCooktopLeftRearState   = "cooktop_left_rear_state"
	FeatCooktopCenterState     = "cooktop_center_state"
	FeatCooktopRightFrontState = "cooktop_right_front_state"
	FeatCooktopRightRearState  = "cooktop_right_rear_state"
	FeatOvenLowerCurrentTemp   = "oven_lower_current_temp"
	FeatOvenLowerMode          = "oven_lower_mode"
	FeatOvenLowerState         = "oven_lower_state"
	FeatOvenUpperCurrentTemp   = "oven_upper_current_temp"
	FeatOvenUpperMode          = "oven_upper_mode"
	FeatOvenUpperState         = "oven_upper_state"

	FeatOvenLowerCookTimerState = "oven_lower_cook_timer_state"
	FeatOvenLowerCookTimerTime  = "oven_lower_cook_timer_time"
	FeatOvenLowerTimerState     = "oven_lower_timer_state"
	FeatOvenLowerTimerTime      = "oven_lower_timer_time"
	FeatOvenUpperCookTimerState = "oven_upper_cook_timer_state"
	FeatOvenUpperCookTimerTime  = "oven_upper_cook_timer_time"
	FeatOvenUpperTimerState     = "oven_upper_timer_state"
	FeatOvenUpperTimerTime      = "oven_upper_timer_time"
)

// Feature keys for hoods and microwaves.
const (
	FeatClockDisplay       = "clock_display"
	FeatDisplayScrollSpeed = "display_scroll_speed"
	FeatHoodState          = "hood_state"
	FeatLightMode          = "light_mode"
	FeatSound              = "sound"
	FeatVentSpeed          = "vent_speed"
	FeatWeightUnit         = "weight_unit"
)

// Feature keys for air purifiers and dehumidifiers.
const (
	FeatFilterBottomLife = "filter_bottom_life"
	FeatFilterDustLife   = "filter_dust_life"
	FeatFilterMainLife   = "filter_main_life"
	FeatFilterMidLife    = "filter_mid_life"
	FeatFilterTopLife    = "filter_top_life"
	FeatPM1              = "pm1"
	FeatPM10             = "pm10"
	FeatPM25             = "pm25"
	FeatTargetHumidity   = "target_humidity"
	FeatWaterTankFull    = "water_tank_full"
)
