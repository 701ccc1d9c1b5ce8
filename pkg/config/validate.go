package config

import (
	"errors"
	"fmt"
	"net/url"
)

func (c *SystemCfg) Validate() error {
	var errs []error
	if err := checkURL("proxy.upstreamURL", c.Proxy.UpstreamURL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("proxy.extensionURL", c.Proxy.ExtensionURL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("host.proxyURL", c.Host.ProxyURL); err != nil {
		errs = append(errs, err)
	}
	if c.Proxy.Mode != ModeProd && c.Proxy.Mode != ModeDev {
		errs = append(errs, fmt.Errorf("proxy.mode must be %q or %q, got %q", ModeProd, ModeDev, c.Proxy.Mode))
	}
	if c.Cache.Enabled && c.Cache.Capacity <= 0 {
		errs = append(errs, errors.New("cache.capacity must be > 0"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must be >= 0"))
	}
	if c.Host.TokenTTL <= 0 {
		errs = append(errs, errors.New("host.tokenTTL must be > 0"))
	}
	return errors.Join(errs...)
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: %q needs a scheme and host", field, raw)
	}
	return nil
}
