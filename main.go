package main

import (
	"flag"

	"github.com/qenta-cee/demandware-wcp/config"
	"github.com/qenta-cee/demandware-wcp/internal"
	"github.com/qenta-cee/demandware-wcp/services"
)

func main() {

	logger := internal.NewLogger("internal", false, nil)

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	logger.Info("using config file: " + *configPath)
	conf, err := config.GetConfig(*configPath)
	if err != nil {
		logger.Error("boot", err)
		return
	}

	var mongo services.Database
	if conf.Mongo.Enabled {
		mongo, err = internal.NewMongoClient(conf)
		if err != nil {
			logger.Error("mongo client", err)
			return
		}
		logger.Info("mongo client initialized")
	}

	checkout := internal.NewCheckout(conf)
	checkout.SetLogger(internal.NewLogger("checkout", conf.IsDebug, mongo))
	checkout.SetDatabase(mongo)

	server := internal.NewServer(conf)
	server.SetLogger(internal.NewLogger("server", conf.IsDebug, mongo))
	server.SetCheckoutService(checkout)

	err = server.Start()
	if err != nil {
		logger.Error("server start", err)
		return
	}

}
