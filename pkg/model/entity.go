// pkg/model/entity.go
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownEntity is returned when an entity name is not one of the six banking entities
var ErrUnknownEntity = errors.New("unknown entity")

// Entity identifies one of the banking entity kinds. Its value is the table name
// shared by the raw and cleansed layers.
type Entity string

const (
	EntityAccount     Entity = "accounts"
	EntityBranch      Entity = "branches"
	EntityCreditCard  Entity = "credit_cards"
	EntityCustomer    Entity = "customers"
	EntityLoan        Entity = "loans"
	EntityTransaction Entity = "transactions"
)

// LoadOrder lists the entities parents-first so references resolve inside a run
var LoadOrder = []Entity{
	EntityBranch,
	EntityCustomer,
	EntityAccount,
	EntityTransaction,
	EntityLoan,
	EntityCreditCard,
}

// String returns the table name of the entity
func (e Entity) String() string {
	return string(e)
}

// Valid reports whether e is a known entity
func (e Entity) Valid() bool {
	_, ok := tables[e]
	return ok
}

// ParseEntity resolves a table name or singular alias ("account", "credit-card") to an Entity
func ParseEntity(name string) (Entity, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	switch normalized {
	case "accounts", "account":
		return EntityAccount, nil
	case "branches", "branch":
		return EntityBranch, nil
	case "credit_cards", "credit_card", "cards", "card":
		return EntityCreditCard, nil
	case "customers", "customer":
		return EntityCustomer, nil
	case "loans", "loan":
		return EntityLoan, nil
	case "transactions", "transaction":
		return EntityTransaction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, name)
}

// Layer identifies the raw or cleansed extent of an entity
type Layer string

const (
	LayerRaw      Layer = "raw"
	LayerCleansed Layer = "cleansed"
)

// ErrUnknownLayer is returned when a layer name is neither raw nor cleansed
var ErrUnknownLayer = errors.New("unknown layer")

// ParseLayer resolves a layer name, accepting the medallion aliases bronze and silver
func ParseLayer(name string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "raw", "bronze":
		return LayerRaw, nil
	case "cleansed", "silver":
		return LayerCleansed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLayer, name)
}
