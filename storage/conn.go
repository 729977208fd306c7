package storage

import (
	"crypto/tls"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// parseConnString accepts "host:port,password=...,ssl=true,db=1".
func parseConnString(raw string) (*redis.Options, error) {
	parts := strings.Split(raw, ",")
	addr := strings.TrimSpace(parts[0])
	if addr == "" || !strings.Contains(addr, ":") {
		return nil, errors.New("invalid redis address " + strconv.Quote(addr))
	}
	opts := &redis.Options{Addr: addr}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		case "db":
			n, err := strconv.Atoi(kv[1])
			if err != nil || n < 0 {
				return nil, errors.New("invalid redis db " + strconv.Quote(kv[1]))
			}
			opts.DB = n
		}
	}
	return opts, nil
}
