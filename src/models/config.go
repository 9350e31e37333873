package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	Market     MMarketConfig     `yaml:"market"`
	Simulation MSimulationConfig `yaml:"simulation"`
	Data       MDataConfig       `yaml:"data"`
	Alerts     MAlertConfig      `yaml:"alerts"`
	LiveAPI    MLiveAPIConfig    `yaml:"live_api"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	RequestTimeout int `yaml:"timeout"`
	MaxRetries     int `yaml:"retries"`
}

// MMarketConfig describes the NEPSE trading schedule.
// TradingDays uses Go weekday numbering (Sunday=0); NEPSE trades Sun-Thu.
// Holidays are MM-DD strings. CalendarMIC optionally delegates trading-day
// decisions to an ISO 10383 exchange calendar instead of the schedule here.
type MMarketConfig struct {
	TimezoneOffsetMinutes int      `yaml:"timezone_offset_minutes"` // NPT is UTC+5:45 = 345
	OpenHour              int      `yaml:"open_hour"`
	OpenMinute            int      `yaml:"open_minute"`
	CloseHour             int      `yaml:"close_hour"`
	CloseMinute           int      `yaml:"close_minute"`
	TradingDays           []int    `yaml:"trading_days"`
	Holidays              []string `yaml:"holidays"`
	ForceOpen             bool     `yaml:"force_open"`
	CalendarMIC           string   `yaml:"calendar_mic"`
}

type MSimulationConfig struct {
	Provider            string `yaml:"provider"` // "simulator" or "nepse_api"
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	TicksPerDay         int    `yaml:"ticks_per_day"`
	ReplayWindowDays    int    `yaml:"replay_window_days"`
	HistoryLookbackDays int    `yaml:"history_lookback_days"`
	TickHistoryPoints   int    `yaml:"tick_history_points"`
}

type MDataConfig struct {
	Dir     string   `yaml:"dir"`
	Symbols []string `yaml:"symbols"`
}

type MAlertConfig struct {
	PriceThresholdPct         float64 `yaml:"price_threshold_pct"`
	VolumeThresholdMultiplier float64 `yaml:"volume_threshold_multiplier"`
	CooldownSeconds           int     `yaml:"cooldown_seconds"`
}

type MLiveAPIConfig struct {
	BaseURL string `yaml:"base_url"`
}
