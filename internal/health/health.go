// Package health probes the backing services the server depends on.
package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const dialTimeout = 1500 * time.Millisecond

// Status of one dependency.
type Status struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report aggregates dependency statuses. Overall is "ok" only when
// every probe passed, otherwise "degraded".
type Report struct {
	Overall string   `json:"overall"`
	Checks  []Status `json:"checks"`
}

// Probe is one named dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Run executes all probes and aggregates the result.
func Run(ctx context.Context, probes []Probe) Report {
	report := Report{Overall: "ok"}
	for _, p := range probes {
		st := Status{Name: p.Name, OK: true}
		if err := p.Check(ctx); err != nil {
			st.OK = false
			st.Error = err.Error()
			report.Overall = "degraded"
		}
		report.Checks = append(report.Checks, st)
	}
	return report
}

// TCPProbe checks that a host:port accepts connections.
func TCPProbe(name, addr string) Probe {
	return Probe{
		Name: name,
		Check: func(ctx context.Context) error {
			d := net.Dialer{Timeout: dialTimeout}
			conn, err := d.DialContext(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}
}

// AddrFromURL extracts host:port from a dependency URL or a key=value
// connection string, applying the default port when neither names one.
func AddrFromURL(raw, defaultPort string) (string, error) {
	if !strings.Contains(raw, "://") && strings.Contains(raw, "=") {
		return addrFromKeyValue(raw, defaultPort)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := u.Host
	if host == "" {
		host = raw
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, defaultPort)
	}
	return host, nil
}

// addrFromKeyValue handles the libpq "host=x port=5432 ..." form.
func addrFromKeyValue(dsn, defaultPort string) (string, error) {
	host, port := "", defaultPort
	for _, field := range strings.Fields(dsn) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch k {
		case "host":
			host = v
		case "port":
			port = v
		}
	}
	if host == "" {
		return "", fmt.Errorf("connection string has no host")
	}
	return net.JoinHostPort(host, port), nil
}
