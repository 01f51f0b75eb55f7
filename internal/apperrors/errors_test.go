package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClass(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{ErrOrderNotFound, ErrNotFound},
		{fmt.Errorf("load order 42: %w", ErrOrderNotFound), ErrNotFound},
		{ErrCardExpired, ErrValidation},
		{ErrInvalidStatus, ErrValidation},
		{ErrInsufficientStock, ErrConflict},
		{ErrPaymentNotProcessing, ErrConflict},
		{ErrOrderNotPayable, ErrConflict},
		{ErrOrderStatusChanged, ErrConflict},
		{ErrOrderNotOwned, ErrValidation},
		{errors.New("connection refused"), nil},
		{nil, nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Class(tc.err), "class of %v", tc.err)
	}
}

func TestSpecificErrorsStayDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrUserNotFound, ErrOrderNotFound))
	assert.True(t, errors.Is(fmt.Errorf("wrap: %w", ErrPrescriptionNotApproved), ErrPrescriptionNotApproved))
	assert.Equal(t, "order not found", ErrOrderNotFound.Error())
}
