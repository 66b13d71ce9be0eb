package config

import "strings"

// server.port -> IOT_TCP_SERVER_PORT
var envKeyReplacer = strings.NewReplacer(".", "_")
