package utils

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/Trinoooo/iot_tcp/errs"
)

// EnsureDir 确保 filePath 所在目录存在，返回 filePath 便于直接使用。
func EnsureDir(filePath string) (string, error) {
	dir := filepath.Dir(filePath)
	_, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(dir, 0770); err != nil {
			return "", errs.NewMkdirErr().WithErr(err)
		}
	} else if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", errs.NewFileNoPermissionErr().WithErr(err)
		}
		return "", errs.NewFileStatErr().WithErr(err)
	}
	return filePath, nil
}
