package matrix

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"matrix_router/pkg/apperror"
)

func TestRequestValidateField(t *testing.T) {
	r := &Request{Sources: []orb.Point{{103, 1}}, DestinationNodes: []int32{1}, Metrics: Weight}
	assert.NoError(t, r.Validate())

	r.Sources = append(r.Sources, orb.Point{181, 1})
	err := r.Validate()
	var ae *apperror.Error
	if assert.ErrorAs(t, err, &ae) {
		assert.Equal(t, "sources", ae.Field)
		assert.Equal(t, 1, ae.Details["index"])
	}
}

func TestRequestCounts(t *testing.T) {
	r := &Request{Sources: []orb.Point{{1, 1}, {2, 2}}, DestinationNodes: []int32{1, 2, 3}}
	assert.Equal(t, 2, r.NumSources())
	assert.Equal(t, 3, r.NumDestinations())
}

func TestRequestCacheKey(t *testing.T) {
	base := func() *Request {
		return &Request{
			Sources:          []orb.Point{{103, 1}},
			DestinationNodes: []int32{4, 5},
			Metrics:          Weight,
		}
	}
	key := base().CacheKey("g")
	assert.Len(t, key, 64)
	assert.Equal(t, key, base().CacheKey("g"))

	variants := []func(*Request){
		func(r *Request) { r.Metrics = Distance },
		func(r *Request) { r.Units = "km" },
		func(r *Request) { r.Profile = "shortest" },
		func(r *Request) { r.Sources[0][1] = 1.0000001 },
		func(r *Request) { r.DestinationNodes = []int32{5, 4} },
		// Same numbers on the other side.
		func(r *Request) {
			r.SourceNodes, r.Sources = []int32{4, 5}, nil
			r.Destinations, r.DestinationNodes = []orb.Point{{103, 1}}, nil
		},
	}
	for i, v := range variants {
		r := base()
		v(r)
		assert.NotEqual(t, key, r.CacheKey("g"), "variant %d", i)
	}
	assert.NotEqual(t, key, base().CacheKey("other"))
}
