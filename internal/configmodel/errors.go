package configmodel

import "github.com/madpsy/usrpsync/internal/errormodel"

func newShapeError(format string, args ...any) error {
	return errormodel.New(errormodel.KindShapeError, format, args...)
}
