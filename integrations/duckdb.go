package integrations

func init() {
	register("duckdb", driver{
		library:    "libduckdb",
		windowsDir: "duckdb-windows-amd64",
		entrypoint: "duckdb_adbc_init",
		dbOptions: func(path string) map[string]string {
			if path == "" {
				return map[string]string{}
			}
			return map[string]string{"path": path}
		},
	})
}
