// Command rtreed serves a telnet front end over a bbolt-backed R-tree
// index.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/reiver/go-telnet"

	"github.com/dogrut/rtreed/client"
	"github.com/dogrut/rtreed/config"
	"github.com/dogrut/rtreed/index"
	"github.com/dogrut/rtreed/logging"
	"github.com/dogrut/rtreed/model"
	"github.com/dogrut/rtreed/monitor"
	"github.com/dogrut/rtreed/store"
)

var (
	configPath = flag.String("c", "rtreed.yaml", "path to config file")
	port       = flag.Int("p", 0, "telnet listen port (overrides config file)")
)

var log = logging.New("cli")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Errorln("failed to open store:", err)
		os.Exit(1)
	}
	defer st.Close()

	layerRoot, err := st.EnsureLayerRoot()
	if err != nil {
		log.Errorln("failed to initialize layer root:", err)
		os.Exit(1)
	}

	tree, err := index.NewWithCapacity(st, layerRoot, model.BBoxDecoder{}, cfg.MaxNodeReferences)
	if err != nil {
		log.Errorln("failed to initialize index:", err)
		os.Exit(1)
	}
	if err := tree.Configure(map[string]string{"splitMode": cfg.SplitMode}); err != nil {
		log.Errorln("failed to configure index:", err)
		os.Exit(1)
	}
	tree.AddMonitor(monitor.New())

	handler := &client.ConnectionHandler{Tree: tree}

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Infoln("listening on", addr)
	if err := telnet.ListenAndServe(addr, handler); err != nil {
		log.Errorln("server stopped:", err)
		os.Exit(1)
	}
}
