package abi

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type ABI struct {
	abi.ABI
}

func MustReadABI(rawJSONABI string) ABI {
	contractABI, err := abi.JSON(strings.NewReader(rawJSONABI))
	if err != nil {
		panic(err)
	}
	return ABI{contractABI}
}

func (a ABI) AllEvents() map[string]bool {
	events := make(map[string]bool, len(a.Events))
	for _, event := range a.Events {
		events[event.String()] = true
	}
	return events
}

func indexed(args abi.Arguments) abi.Arguments {
	var res abi.Arguments
	for _, arg := range args {
		if arg.Indexed {
			res = append(res, arg)
		}
	}
	return res
}

func (a ABI) FindMatchingEventABI(topics []common.Hash) *abi.Event {
	for _, e := range a.Events {
		if e.ID == topics[0] {
			if len(indexed(e.Inputs)) == len(topics)-1 {
				return &e
			}
		}
	}
	return nil
}

func (a ABI) DecodeEventLog(event *abi.Event, topics []common.Hash, data []byte) (map[string]interface{}, error) {
	indexedArgs := indexed(event.Inputs)
	values := make(map[string]interface{})
	if len(indexedArgs) < len(event.Inputs) {
		if err := event.Inputs.UnpackIntoMap(values, data); err != nil {
			return nil, fmt.Errorf("can't unpack data: %w", err)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexedArgs, topics[1:]); err != nil {
		return nil, fmt.Errorf("can't unpack topics: %w", err)
	}
	return values, nil
}

// ParseLog decodes an event log into its canonical signature and a map of
// decoded arguments. An unknown topic yields an empty signature and no error.
func (a ABI) ParseLog(topics []common.Hash, data []byte) (string, map[string]interface{}, error) {
	if len(topics) == 0 {
		return "", nil, fmt.Errorf("cannot process event without topics")
	}
	event := a.FindMatchingEventABI(topics)
	if event == nil {
		return "", nil, nil
	}
	values, err := a.DecodeEventLog(event, topics, data)
	if err != nil {
		return "", nil, fmt.Errorf("can't decode event log: %w", err)
	}
	return event.String(), values, nil
}
