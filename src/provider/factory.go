package provider

import (
	"nepse-data-server/src/interfaces"
	"nepse-data-server/src/logger"
	"nepse-data-server/src/models"
)

// NewDataProvider builds the provider named by the simulation config.
// Anything other than "nepse_api" gets the replay simulator: it is the
// default and the only provider that can run fully offline.
func NewDataProvider(cfg *models.MConfig, log *logger.Logger, reg interfaces.IHistorySource, net interfaces.INetworkManager, symbols []string) interfaces.IDataProvider {
	switch cfg.Simulation.Provider {
	case "nepse_api":
		log.Info("Using live NEPSE API data provider")
		return NewNepseAPIProvider(cfg, log, reg, net)
	default:
		log.Info("Using replay simulator data provider")
		return NewSimulatorProvider(cfg, log, reg, symbols)
	}
}
