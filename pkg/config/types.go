package config

import "time"

const (
	ModeProd = "prod"
	ModeDev  = "dev"
)

type LogCfg struct {
	Level  string `toml:"level" yaml:"level"`
	Pretty bool   `toml:"pretty" yaml:"pretty"`
}

type CSPCfg struct {
	// ExtensionOrigin is always added to frame-src.
	ExtensionOrigin string `toml:"extensionOrigin" yaml:"extensionOrigin"`
	// DevOrigin is added to frame-src in dev mode only.
	DevOrigin  string   `toml:"devOrigin" yaml:"devOrigin"`
	ConnectSrc []string `toml:"connectSrc" yaml:"connectSrc"`
}

type ProxyCfg struct {
	ListenAddr  string `toml:"listenAddr" yaml:"listenAddr"`
	MetricsAddr string `toml:"metricsAddr" yaml:"metricsAddr"`

	UpstreamURL          string `toml:"upstreamURL" yaml:"upstreamURL"`
	ExtensionURL         string `toml:"extensionURL" yaml:"extensionURL"`
	PreserveOriginalHost bool   `toml:"preserveOriginalHost" yaml:"preserveOriginalHost"`
	EmbedHost            string `toml:"embedHost" yaml:"embedHost"`

	Mode         string `toml:"mode" yaml:"mode"`
	ExtensionDir string `toml:"extensionDir" yaml:"extensionDir"`
	// Files maps exact request paths to local files, e.g. "/minusx.css" = "custom.css".
	Files map[string]string `toml:"files" yaml:"files"`

	CSP CSPCfg `toml:"csp" yaml:"csp"`

	Timeout             time.Duration `toml:"timeout" yaml:"timeout"`
	MaxIdleConns        int           `toml:"maxIdleConn" yaml:"maxIdleConn"`
	MaxIdleConnsPerHost int           `toml:"maxIdleConnPerHost" yaml:"maxIdleConnPerHost"`
	IdleConnTimeout     time.Duration `toml:"idleConnTimeout" yaml:"idleConnTimeout"`
}

type CacheCfg struct {
	Enabled  bool `toml:"enabled" yaml:"enabled"`
	Capacity int  `toml:"capacity" yaml:"capacity"`
	// TTL in seconds, 0 keeps assets until evicted by capacity.
	TTL int `toml:"ttl" yaml:"ttl"`
}

type PageCfg struct {
	Name       string `toml:"name" yaml:"name"`
	Path       string `toml:"path" yaml:"path"`
	IframePath string `toml:"iframePath" yaml:"iframePath"`
	Icon       string `toml:"icon" yaml:"icon"`
}

type HostCfg struct {
	ListenAddr string `toml:"listenAddr" yaml:"listenAddr"`
	// ProxyURL is where the browser reaches mxproxy.
	ProxyURL       string        `toml:"proxyURL" yaml:"proxyURL"`
	MetabaseSecret string        `toml:"metabaseSecret" yaml:"metabaseSecret"`
	MXSecret       string        `toml:"mxSecret" yaml:"mxSecret"`
	SessionSecret  string        `toml:"sessionSecret" yaml:"sessionSecret"`
	StaticDir      string        `toml:"staticDir" yaml:"staticDir"`
	EmbedQuery     string        `toml:"embedQuery" yaml:"embedQuery"`
	TokenTTL       time.Duration `toml:"tokenTTL" yaml:"tokenTTL"`
	Pages          []PageCfg     `toml:"pages" yaml:"pages"`
}

type SystemCfg struct {
	Log   LogCfg   `toml:"log" yaml:"log"`
	Proxy ProxyCfg `toml:"proxy" yaml:"proxy"`
	Cache CacheCfg `toml:"cache" yaml:"cache"`
	Host  HostCfg  `toml:"host" yaml:"host"`
}

// DevMode reports whether bundle routes are served from disk.
func (c *ProxyCfg) DevMode() bool {
	return c.Mode == ModeDev
}
