package main

import _ "embed"

// embeddedConfig is the baked-in YAML layer of the config chain. Release
// tooling may replace embed_config.yaml with site defaults before building;
// the checked-in file carries none.
//
//go:embed embed_config.yaml
var embeddedConfig []byte
