package database

import (
	"cmp"
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/eva-client/internal/config"
)

// ApplicationName identifies journal sessions in pg_stat_activity.
const ApplicationName = "eva-client"

// ConnString builds the journal's PostgreSQL URL. Credentials are escaped
// as URL userinfo; unset port and sslmode fall back to the config defaults.
func ConnString(cfg config.DBConfig) string {
	q := url.Values{}
	q.Set("sslmode", cmp.Or(cfg.SSLMode, config.DefaultDBSSLMode))
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cmp.Or(cfg.Port, config.DefaultDBPort))),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
