package main

import (
	"flag"
	"log"
	"os"

	"github.com/mogaika/xformedit/command"
	"github.com/mogaika/xformedit/config"
	"github.com/mogaika/xformedit/editscript"
	"github.com/mogaika/xformedit/usd"
)

func main() {
	var stagePath, scriptPath, out string
	var debug bool
	flag.StringVar(&stagePath, "stage", "", "Path to yaml stage file")
	flag.StringVar(&scriptPath, "script", "", "Path to edit script")
	flag.StringVar(&out, "o", "", "Output stage file, defaults to -stage")
	flag.BoolVar(&debug, "debug", false, "Trace every statement")
	flag.Parse()

	if stagePath == "" || scriptPath == "" {
		flag.PrintDefaults()
		return
	}
	if out == "" {
		out = stagePath
	}
	config.SetDebugManipulators(debug)

	text, err := os.ReadFile(scriptPath)
	if err != nil {
		log.Fatal(err)
	}
	statements, err := editscript.ParseScript(text)
	if err != nil {
		log.Fatal(err)
	}

	stage, err := usd.Open(stagePath)
	if err != nil {
		log.Fatal(err)
	}

	runner := editscript.NewRunner(stage, command.NewHistory(0))
	if done, err := runner.Run(statements); err != nil {
		log.Fatalf("Stopped after %d of %d statements: %v", done, len(statements), err)
	}

	if err := stage.Save(out); err != nil {
		log.Fatal(err)
	}
	log.Printf("Applied %d statements, saved %q", len(statements), out)
}
