package admin

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/fdaccounts/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// errPasswordMismatch is returned when the confirmation differs.
var errPasswordMismatch = errors.New("passwords do not match")

// getNewPassword reads a password twice from the terminal without echo.
func getNewPassword(fd int, w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(first)

	fmt.Fprint(w, "Password (again): ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		return "", errPasswordMismatch
	}
	if len(first) == 0 {
		return "", errors.New("blank passwords are not allowed")
	}
	return string(first), nil
}
