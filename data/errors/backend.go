package errors

import "github.com/mwantia/histfs/data"

func BackendUnsupported(err error, name string) error {
	return newError(data.ErrBackendUnsupported, err, "backend capability unsupported for '%s'", name)
}

func BackendIncompatible(err error, name string) error {
	return newError(data.ErrBackendIncompatible, err, "backend incompatible for '%s'", name)
}

func MountFailed(err error, name string) error {
	return newError(data.ErrMountFailed, err, "unable to open backend '%s'", name)
}
