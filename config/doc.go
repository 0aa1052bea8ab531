// Package config resolves seedrepo settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags
//  2. Environment variables (SEEDREPO_<KEY>)
//  3. Local config (.seedrepo.yaml in the working directory)
//  4. Global config (~/.config/seedrepo/config.yaml)
//  5. Built-in defaults
//
// # Usage
//
//	settings, resolved, err := config.Load(config.LoadOptions{
//	    Flags: map[string]string{config.KeyLogLevel: "debug"},
//	})
//	fmt.Println(settings.BlobConcurrency)         // 8
//	fmt.Println(resolved.Source(config.KeyWebURL)) // "default"
//
// Every resolved value tracks its Source, and validation errors name both
// the key and the source that supplied the bad value.
//
// Save and Unset edit a YAML config file in place:
//
//	err := config.Save(config.DefaultGlobalPath(config.App), config.KeyRepoPrefix, "acme")
package config
