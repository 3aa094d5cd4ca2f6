// Package all registers every site scraper with the crawler.
//
//	import _ "github.com/huanfeng/apkcrawler/pkg/sites/all"
package all

import (
	_ "github.com/huanfeng/apkcrawler/pkg/sites/apkbeast"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/apkdl"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/apkmirror"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/apkpure"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/aptoide"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/mobogenie"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/plazza"
	_ "github.com/huanfeng/apkcrawler/pkg/sites/uptodown"
)
