package main

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/nrf91.go/pkg/at"
	fx "github.com/robotalks/nrf91.go/pkg/framework"
	"github.com/robotalks/nrf91.go/pkg/mqtt"
	"github.com/robotalks/nrf91.go/pkg/secfs"
	"github.com/robotalks/nrf91.go/pkg/shadow"
)

var (
	checkTag = false
	secTag   = uint(shadow.DefaultSecTag)
	getDoc   = true
)

func init() {
	at.SetupFlags()
	shadow.SetupFlags()
	flag.BoolVar(&checkTag, "check-tag", checkTag, "Check the device holds the broker CA before connecting.")
	flag.UintVar(&secTag, "sec-tag", secTag, "Sec tag of the broker CA on the device.")
	flag.BoolVar(&getDoc, "get", getDoc, "Request the shadow document once connected.")
}

func main() {
	flag.Parse()

	runner := fx.NewRunner().HandleSignals()
	if checkTag {
		dialer := at.NewConfig().NewDialer()
		found, err := secfs.NewCMNG(dialer).Exists(runner.Context, secfs.RootCA, secfs.SecTag(secTag))
		dialer.Close()
		if err != nil {
			log.Fatalln(err)
		}
		if !found {
			log.Fatalf("Sec tag %d not found", secTag)
		}
		glog.Infof("Sec tag %d found", secTag)
	}

	client, err := shadow.NewConfig().NewClient()
	if err != nil {
		log.Fatalln(err)
	}
	client.Queue.Sub(client.Topics.Base()+"/#", mqtt.Handler(func(topic string, payload []byte) {
		glog.Infof("%s: %s", topic, string(payload))
	}))
	client.OnDelta(func(delta *shadow.Delta) {
		glog.Infof("delta version %d: %s", delta.Version, string(delta.State))
	})
	if getDoc {
		client.Queue.OnConnect = func(*mqtt.Queue) {
			go requestDocument(runner.Context, client)
		}
	}
	if err := runner.Go(fx.NamedRun("shadow", client)).Wait(); err != nil {
		log.Fatalln(err)
	}
}

func requestDocument(ctx context.Context, client *shadow.Client) {
	doc, err := client.Get(ctx)
	if err != nil {
		glog.Warningf("get %s: %v", client.Topics.Thing, err)
		return
	}
	glog.Infof("document version %d reported=%s desired=%s",
		doc.Version, string(doc.State.Reported), string(doc.State.Desired))
}
