// Package config provides configuration management for the checkout page
// integration service. Configuration can be loaded from YAML files and
// overridden by environment variables.
package config

import (
	"fmt"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the checkout page integration service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug    bool  `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	LogRecords int64 `yaml:"log_records" env:"LOG_RECORDS" env-default:"0"`
	Listen     struct {
		Type     string `yaml:"type" env:"LISTEN_TYPE" env-default:"port"`
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
	Gateway struct {
		// Url is the hosted payment page the shopper is redirected to.
		Url        string `yaml:"url" env:"GATEWAY_URL" env-default:"https://checkout.wirecard.com/page/init.php"`
		Secret     string `yaml:"secret" env:"GATEWAY_SECRET" env-default:""`
		CustomerId string `yaml:"customer_id" env:"GATEWAY_CUSTOMER_ID" env-default:""`
		ShopId     string `yaml:"shop_id" env:"GATEWAY_SHOP_ID" env-default:""`

		SuccessUrl string `yaml:"success_url" env:"GATEWAY_SUCCESS_URL" env-default:""`
		CancelUrl  string `yaml:"cancel_url" env:"GATEWAY_CANCEL_URL" env-default:""`
		FailureUrl string `yaml:"failure_url" env:"GATEWAY_FAILURE_URL" env-default:""`
		PendingUrl string `yaml:"pending_url" env:"GATEWAY_PENDING_URL" env-default:""`
		ConfirmUrl string `yaml:"confirm_url" env:"GATEWAY_CONFIRM_URL" env-default:""`
		ServiceUrl string `yaml:"service_url" env:"GATEWAY_SERVICE_URL" env-default:""`

		// Display templates; the order number and billing name are filled in
		// per request.
		DisplayText       string `yaml:"display_text" env:"GATEWAY_DISPLAY_TEXT" env-default:"Order %s"`
		CustomerStatement string `yaml:"customer_statement" env:"GATEWAY_CUSTOMER_STATEMENT" env-default:"Order %s"`
		OrderDescription  string `yaml:"order_description" env:"GATEWAY_ORDER_DESCRIPTION" env-default:"Order %s for %s %s"`

		DuplicateRequestCheck  bool `yaml:"duplicate_request_check" env:"GATEWAY_DUPLICATE_REQUEST_CHECK" env-default:"false"`
		TrimResponseParameters bool `yaml:"trim_response_parameters" env:"GATEWAY_TRIM_RESPONSE_PARAMETERS" env-default:"false"`
		// SendOrderNumber submits the shop order number as the gateway order
		// number on the final retry.
		SendOrderNumber bool `yaml:"send_order_number" env:"GATEWAY_SEND_ORDER_NUMBER" env-default:"false"`

		ShopName      string `yaml:"shop_name" env:"GATEWAY_SHOP_NAME" env-default:""`
		ShopVersion   string `yaml:"shop_version" env:"GATEWAY_SHOP_VERSION" env-default:""`
		PluginName    string `yaml:"plugin_name" env:"GATEWAY_PLUGIN_NAME" env-default:""`
		PluginVersion string `yaml:"plugin_version" env:"GATEWAY_PLUGIN_VERSION" env-default:""`
	} `yaml:"gateway"`
}

var instance *Config
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once.
//
// Environment variables take precedence over YAML values. See Config struct
// for the list of supported environment variables.
//
// Example:
//
//	cfg, err := config.GetConfig("config.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("load config: %w; %s", err, desc)
			instance = nil
		}
	})
	return instance, err
}
