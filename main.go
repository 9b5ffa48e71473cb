package main

import (
	"github.com/guobin211/opencontext/cmd/oc"
)

func main() {
	oc.Execute()
}
