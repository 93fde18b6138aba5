package command

import "os"

type Config struct{}

func (c *Config) Run(g *Globals) error {
	cfg, err := g.LoadConfig()
	if err != nil {
		die("load config: %v", err)
		return err
	}
	return cfg.Encode(os.Stdout)
}
