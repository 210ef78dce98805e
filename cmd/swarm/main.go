// Command swarm is a local worker-fleet orchestrator: it spawns,
// tracks, inspects, signals, and recycles long-lived child processes,
// and drives multi-stage workflows over them.
package main

func main() {
	Execute()
}
