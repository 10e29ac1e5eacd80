package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	appkg "github.com/xenking/kart-pos/internal/app"
	"github.com/xenking/kart-pos/internal/domain/auth"
)

type config struct {
	Subject string `required:"true" usage:"Token subject; it also keys the caller's cart"`
	Role    string `default:"cashier" usage:"Token role: admin or cashier"`
	Auth    appkg.AuthConfig
}

func main() {
	var cfg config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "POS",
		Files:              appkg.ConfigFiles,
		AllowUnknownFields: true,
		AllowUnknownEnvs:   true,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	token, err := issue(cfg)
	if err != nil {
		slog.Error("issue token failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("issued token",
		slog.String("subject", cfg.Subject),
		slog.String("role", cfg.Role),
		slog.Duration("ttl", cfg.Auth.TokenTTL),
	)
	fmt.Println(token)
}

func issue(cfg config) (string, error) {
	role, err := auth.ParseRole(cfg.Role)
	if err != nil {
		return "", err
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.TokenConfig())
	if err != nil {
		return "", errors.Wrap(err, "create token manager")
	}
	return tokens.Issue(cfg.Subject, role)
}
