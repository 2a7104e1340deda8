package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "FINANCEFLOW_"

type Application struct {
	Host       string     `koanf:"host"`
	Server     Server     `koanf:"server"`
	Database   Database   `koanf:"db"`
	JWT        JWT        `koanf:"jwt"`
	Mail       Mail       `koanf:"mail"`
	Twilio     Twilio     `koanf:"twilio"`
	Amqp       Amqp       `koanf:"amqp"`
	Frontend   Frontend   `koanf:"frontend"`
	Pagination Pagination `koanf:"pagination"`
}

type Server struct {
	Addr string `koanf:"addr"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type JWT struct {
	Secret     string        `koanf:"secret"`
	AccessTTL  time.Duration `koanf:"accessttl"`
	RefreshTTL time.Duration `koanf:"refreshttl"`
}

type Mail struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (m Mail) Enabled() bool {
	return m.Host != "" && m.Username != ""
}

type Twilio struct {
	AccountSid string `koanf:"accountsid"`
	AuthToken  string `koanf:"authtoken"`
	From       string `koanf:"from"`
}

func (t Twilio) Enabled() bool {
	return t.AccountSid != "" && t.AuthToken != "" && t.From != ""
}

type Amqp struct {
	Url      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

type Frontend struct {
	ResetUrl string `koanf:"reseturl"`
}

type Pagination struct {
	PageSize int `koanf:"pagesize"`
}

func defaults() Application {
	return Application{
		Host: "http://localhost:5000",
		Server: Server{
			Addr: ":5000",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "financeflow",
			Pass:   "",
			Name:   "financeflow",
			Schema: "financeflow",
		},
		JWT: JWT{
			Secret:     "jwt-secret-key-change-in-production",
			AccessTTL:  time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Mail: Mail{
			Host: "smtp.gmail.com",
			Port: 587,
			From: "noreply@financeflow.com",
		},
		Amqp: Amqp{
			Exchange: "financeflow.events",
		},
		Frontend: Frontend{
			ResetUrl: "http://localhost:5173/reset-password/",
		},
		Pagination: Pagination{
			PageSize: 20,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
