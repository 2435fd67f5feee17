package job

import "strconv"

// Connection holds the parameters of one open database connection.
// It is a value: builders receive a copy at construction and never
// share it across connections.
type Connection struct {
	Engine   string `yaml:"engine" json:"engine"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Database string `yaml:"database" json:"database"`

	// Default schema for engines that have one (Postgres, SQL Server)
	Schema string `yaml:"schema" json:"schema,omitempty"`

	SSL                   bool   `yaml:"ssl" json:"ssl"`
	SSLCAFile             string `yaml:"sslCaFile" json:"sslCaFile,omitempty"`
	SSLCertFile           string `yaml:"sslCertFile" json:"sslCertFile,omitempty"`
	SSLKeyFile            string `yaml:"sslKeyFile" json:"sslKeyFile,omitempty"`
	SSLRejectUnauthorized bool   `yaml:"sslRejectUnauthorized" json:"sslRejectUnauthorized"`

	SocketEnabled bool   `yaml:"socketEnabled" json:"socketEnabled"`
	SocketPath    string `yaml:"socketPath" json:"socketPath,omitempty"`

	// Local end of an SSH tunnel opened by the host application
	TunnelActive    bool   `yaml:"tunnelActive" json:"tunnelActive"`
	TunnelLocalHost string `yaml:"tunnelLocalHost" json:"tunnelLocalHost,omitempty"`
	TunnelLocalPort int    `yaml:"tunnelLocalPort" json:"tunnelLocalPort,omitempty"`

	// Path of the database file for file-based engines
	File string `yaml:"file" json:"file,omitempty"`
}

// DefaultTunnelHost is the local end of a tunnel that names no host
const DefaultTunnelHost = "127.0.0.1"

// Endpoint returns the host and port a client tool should dial.
// An active tunnel always replaces the configured server address.
func (c Connection) Endpoint() (string, int) {
	if c.TunnelActive {
		host := c.TunnelLocalHost
		if host == "" {
			host = DefaultTunnelHost
		}
		return host, c.TunnelLocalPort
	}
	return c.Host, c.Port
}

// UsesSocket reports whether clients should connect through the socket path
func (c Connection) UsesSocket() bool {
	return c.SocketEnabled && c.SocketPath != ""
}

// PortString returns the endpoint port, or "" when unset
func (c Connection) PortString() string {
	_, port := c.Endpoint()
	if port == 0 {
		return ""
	}
	return strconv.Itoa(port)
}

// DatabaseName returns the database a job targets by default
func (c Connection) DatabaseName() string {
	if c.Database != "" {
		return c.Database
	}
	return c.File
}
