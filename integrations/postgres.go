package integrations

import "github.com/apache/arrow-adbc/go/adbc"

func init() {
	register("postgres", driver{
		library:    "libadbc_driver_postgresql",
		windowsDir: "postgresql-windows-amd64",
		dbOptions: func(uri string) map[string]string {
			return map[string]string{adbc.OptionKeyURI: uri}
		},
	})
}
