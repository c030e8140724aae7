package config

import "github.com/namsral/flag"

type Config struct {
	DataPath    string
	Compression bool
	MemLimit    uint64
	Workers     int
	Force       bool
}

func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("tiersolver", flag.ContinueOnError)
	fs.StringVar(&c.DataPath, "data-path", "./data", "directory holding solved game databases")
	fs.BoolVar(&c.Compression, "compression", true, "store tiers bit-perfectly compressed instead of as flat record arrays")
	fs.Uint64Var(&c.MemLimit, "mem-limit", 0, "solving memory limit in bytes; 0 means 90% of physical memory")
	fs.IntVar(&c.Workers, "workers", 0, "number of solving goroutines; 0 means the number of CPUs")
	fs.BoolVar(&c.Force, "force", false, "re-solve tiers whose database files already exist")
	err := fs.Parse(args)
	return err
}
