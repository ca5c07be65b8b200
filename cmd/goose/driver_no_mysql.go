//go:build no_mysql

package main

import "errors"

func normalizeMySQLDSN(string, string) (string, error) {
	return "", errors.New("mysql support was excluded with the no_mysql build tag")
}
