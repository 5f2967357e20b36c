package config

type AppConfig struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	Log    LogConfig
}

func Load() (*AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return nil, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return nil, err
	}
	storeCfg, err := LoadStore()
	if err != nil {
		return nil, err
	}
	authCfg, err := LoadAuth()
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		Server: serverCfg,
		Store:  storeCfg,
		Auth:   authCfg,
		Log:    logCfg,
	}, nil
}
