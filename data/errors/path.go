package errors

import "github.com/mwantia/histfs/data"

func InvalidPath(err error, path string) error {
	return newError(data.ErrInvalidPath, err, "invalid path '%s' detected", path)
}

func NotExist(err error, key string) error {
	return newError(data.ErrNotExist, err, "'%s' does not exist", key)
}
