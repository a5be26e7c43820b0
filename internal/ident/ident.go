// Package ident generates unique, human-readable transaction numbers.
package ident

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var node *snowflake.Node

func init() {
	var err error
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

// TransactionNumber returns a number like TRX-20250823-3KJ0Q9X1. The date
// prefix keeps numbers readable on receipts; the snowflake suffix is
// time-ordered and collision-free, which the unique index on
// transactions.number relies on.
func TransactionNumber() string {
	return fmt.Sprintf("TRX-%s-%s",
		time.Now().Format("20060102"),
		strings.ToUpper(node.Generate().Base36()))
}
