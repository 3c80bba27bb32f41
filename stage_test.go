// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStages(t *testing.T) {
	assert.Len(t, stageNames, numStages)
	assert.Len(t, Stages(), numStages)
	stages := Stages()
	assert.Equal(t, BeforeRequest, stages[BeforeRequest])
	assert.Equal(t, BeforeStream, stages[BeforeStream])
	assert.Equal(t, TransformStreamChunk, stages[TransformStreamChunk])
	assert.Equal(t, AfterResponse, stages[AfterResponse])
	assert.Equal(t, OnError, stages[OnError])
	assert.Equal(t, OnFinally, stages[OnFinally])
}

func TestStage_Name(t *testing.T) {
	assert.Equal(t, "BeforeRequest", BeforeRequest.Name())
	assert.Equal(t, "BeforeStream", BeforeStream.Name())
	assert.Equal(t, "TransformStreamChunk", TransformStreamChunk.Name())
	assert.Equal(t, "AfterResponse", AfterResponse.Name())
	assert.Equal(t, "OnError", OnError.Name())
	assert.Equal(t, "OnFinally", OnFinally.String())
}

func TestState_String(t *testing.T) {
	assert.Len(t, stateNames, int(Aborted)+1)
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Streaming", Streaming.String())
	assert.Equal(t, "Aborted", Aborted.String())
	assert.False(t, Buffering.Settled())
	assert.True(t, Resolved.Settled())
	assert.True(t, Rejected.Settled())
	assert.True(t, Aborted.Settled())
}
