package provider

import (
	"strings"

	"nepse-data-server/src/helpers"
	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// -----------------------------------------------------------------------------
// NepseAPIProvider is the live-data provider shell. Historical queries are
// served from the local registry; live tick generation requires an upstream
// NEPSE feed and is not wired yet, so the tick operations report
// ErrNotImplemented and callers fall back to the simulator.
// -----------------------------------------------------------------------------

type NepseAPIProvider struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Registry interfaces.IHistorySource
	Network  interfaces.INetworkManager
}

func NewNepseAPIProvider(cfg *models.MConfig, log *logger.Logger, reg interfaces.IHistorySource, net interfaces.INetworkManager) *NepseAPIProvider {
	p := &NepseAPIProvider{
		Config:   cfg,
		Logger:   log,
		Registry: reg,
		Network:  net,
	}
	p.probe()
	return p
}

// probe checks upstream reachability once at construction so a dead endpoint
// is reported at startup rather than on the first request.
func (p *NepseAPIProvider) probe() {
	base := p.Config.LiveAPI.BaseURL
	if base == "" {
		p.Logger.Warning("Live API provider selected but no base URL configured")
		return
	}
	if _, err := p.Network.Get(base, nil); err != nil {
		p.Logger.Warning("Live API endpoint %s unreachable: %s", base, err)
		return
	}
	p.Logger.Info("Live API endpoint %s reachable", base)
}

// -----------------------------------------------------------------------------

func (p *NepseAPIProvider) GetLatestTick(symbol string) (models.MTick, bool) {
	return models.MTick{}, false
}

func (p *NepseAPIProvider) GetAllTicks() map[string]models.MTick {
	return map[string]models.MTick{}
}

func (p *NepseAPIProvider) GenerateTick(symbol string) (models.MTick, error) {
	return models.MTick{}, helpers.ErrNotImplemented
}

func (p *NepseAPIProvider) ResetSession() {}

func (p *NepseAPIProvider) GetHistory(symbol string, days int) []models.MHistoricalDay {
	return p.Registry.DailyBars(strings.ToUpper(symbol), days)
}

func (p *NepseAPIProvider) GetAvailableSymbols() []string {
	return p.Registry.AllSymbols()
}

func (p *NepseAPIProvider) Subscribe(symbol, id string, fn func(models.MTick)) {}

func (p *NepseAPIProvider) Unsubscribe(symbol, id string) {}
