package main

import "github.com/huanfeng/apkcrawler/cmd"

func main() {
	cmd.Execute()
}
