package main

import (
	"flag"
	"log"

	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/manip"
	"github.com/mogaika/xformedit/usd"
	"github.com/mogaika/xformedit/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var webPath string
	flag.StringVar(&cfg.Addr, "i", cfg.Addr, "Address of server")
	flag.StringVar(&cfg.Stage, "stage", cfg.Stage, "Path to yaml stage file, empty for a new in-memory stage")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Trace manipulator binding and edits")
	flag.StringVar(&cfg.Space, "space", cfg.Space, "Default space of translations: preTransform, postTransform, world or transform")
	flag.StringVar(&cfg.EditTarget, "target", cfg.EditTarget, "Initial edit target layer: root or session")
	flag.StringVar(&webPath, "web", "", "Path to folder with web data to serve")
	flag.Parse()

	if _, err := manip.ParseSpace(cfg.Space); err != nil {
		log.Fatal(err)
	}
	cfg.Apply()

	var stage *usd.Stage
	if cfg.Stage != "" {
		if stage, err = usd.Open(cfg.Stage); err != nil {
			log.Fatal(err)
		}
		log.Printf("Opened stage %q", cfg.Stage)
	} else {
		stage = usd.NewInMemory()
		log.Printf("Using new in-memory stage")
	}

	s := web.NewServer(stage, cfg.Stage)
	if err := s.SetEditTarget(cfg.EditTarget); err != nil {
		log.Fatal(err)
	}

	if err := web.StartServer(cfg.Addr, s, webPath); err != nil {
		log.Fatal(err)
	}
}
