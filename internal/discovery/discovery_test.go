package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceTypeIsSyncwaveTCP(t *testing.T) {
	assert.Equal(t, "_syncwave._tcp", ServiceType)
}

func TestVersionIsSet(t *testing.T) {
	assert.NotEmpty(t, Version)
}
