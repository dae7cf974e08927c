// cmd/buttonfetch/main.go
package main

func main() {
	Execute()
}
