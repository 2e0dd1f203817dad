package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupForAge(t *testing.T) {
	cases := []struct {
		age  int
		want Group
	}{
		{4, GroupA},
		{5, GroupA},
		{6, GroupA},
		{7, GroupB},
		{10, GroupB},
		{11, GroupC},
		{14, GroupC},
		{15, GroupD},
		{18, GroupD},
		{3, GroupOther},
		{19, GroupOther},
		{0, GroupOther},
		{-1, GroupOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GroupForAge(tc.age), "age %d", tc.age)
	}
}

func TestGroupValid(t *testing.T) {
	assert.True(t, GroupA.Valid())
	assert.True(t, GroupOther.Valid())
	assert.False(t, Group("E").Valid())
	assert.False(t, Group("").Valid())
}

func TestSexValid(t *testing.T) {
	assert.True(t, SexMale.Valid())
	assert.True(t, SexFemale.Valid())
	assert.False(t, Sex("M").Valid())
}
