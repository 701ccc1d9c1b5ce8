package config

import "strings"

const devNodeEnv = "MX_DEV"

type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with the environment variables the
// deployment scripts set.
func applyEnv(config *SystemCfg, lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("TARGET", &config.Proxy.UpstreamURL)
	str("EXTENSION_TARGET", &config.Proxy.ExtensionURL)
	str("EMBED_HOST", &config.Proxy.EmbedHost)
	if v, ok := lookup("NODE_ENV"); ok && v != "" {
		if v == devNodeEnv {
			config.Proxy.Mode = ModeDev
		} else {
			config.Proxy.Mode = ModeProd
		}
	}

	str("PROXY_URL", &config.Host.ProxyURL)
	str("METABASE_JWT_SHARED_SECRET", &config.Host.MetabaseSecret)
	str("MX_JWT_SHARED_SECRET", &config.Host.MXSecret)
	if v, ok := lookup("PORT"); ok && v != "" {
		config.Host.ListenAddr = ":" + strings.TrimPrefix(v, ":")
	}

	var dashboard, editor string
	str("METABASE_DASHBOARD_PATH", &dashboard)
	str("METABASE_EDITOR_PATH", &editor)
	for i := range config.Host.Pages {
		switch {
		case dashboard != "" && config.Host.Pages[i].Path == "/dashboard":
			config.Host.Pages[i].IframePath = dashboard
		case editor != "" && config.Host.Pages[i].Path == "/mbql":
			config.Host.Pages[i].IframePath = editor
		}
	}
}
