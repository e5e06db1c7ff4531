package config

import "os"

func IsDebug() bool {
	return os.Getenv("POCKETBOT_DEBUG") == "1"
}
