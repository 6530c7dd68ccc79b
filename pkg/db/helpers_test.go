package db

import "github.com/smallbiznis/slotwise/internal/config"

func testConfig(kind string) config.Config {
	return config.Config{DBType: kind, DBName: "slotwise", DBHost: "localhost", DBPort: "5432", DBUser: "u"}
}
