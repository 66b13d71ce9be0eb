package utils

import (
	"os"

	"github.com/Trinoooo/iot_tcp/consts"
)

func Env() string {
	return os.Getenv(consts.Env)
}

func IsTest() bool {
	return Env() == "test"
}
