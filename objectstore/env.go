package objectstore

import "os"

func commandEnv() []string {
	return append([]string(nil), os.Environ()...)
}
